// Package runtime executes signed solana transactions against a local account
// store. Programs are registered by ID; every transaction runs all-or-nothing
// under a single lock, so instructions observe a consistent ledger.
package runtime

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// MaxRecentBlockhashes is how many blockhashes a transaction may lag behind.
const MaxRecentBlockhashes = 150

// Receipt is the outcome of an executed transaction. It is returned for
// failed transactions too, carrying the logs written before the failure.
type Receipt struct {
	Signature  solana.Signature
	Slot       uint64
	Logs       []string
	ReturnData []byte
	Err        error
}

type Option func(*Runtime)

// WithClock overrides the wall clock used for slot timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) { r.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

type Runtime struct {
	mu          deadlock.Mutex
	store       Store
	programs    map[solana.PublicKey]Program
	clock       func() time.Time
	logger      *zap.Logger
	slot        uint64
	blockhashes []solana.Hash
	processed   map[solana.Signature]uint64
}

func New(store Store, opts ...Option) *Runtime {
	r := &Runtime{
		store:     store,
		programs:  make(map[solana.PublicKey]Program),
		clock:     time.Now,
		logger:    zap.NewNop(),
		processed: make(map[solana.Signature]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.blockhashes = []solana.Hash{solana.Hash(sha256.Sum256([]byte("genesis")))}
	return r
}

// Register deploys a program. A later registration with the same ID replaces
// the earlier one.
func (r *Runtime) Register(programs ...Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range programs {
		r.programs[p.ID()] = p
		r.logger.Debug("program registered", zap.Stringer("program", p.ID()))
	}
}

func (r *Runtime) LatestBlockhash() solana.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockhashes[len(r.blockhashes)-1]
}

func (r *Runtime) Slot() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slot
}

// GetAccount reads committed state. It returns nil when no account exists.
func (r *Runtime) GetAccount(address solana.PublicKey) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.store.Get(address)
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", address, err)
	}
	return acc, nil
}

// Execute verifies and runs tx. Either every instruction succeeds and their
// writes are committed together, or nothing is written.
func (r *Runtime) Execute(tx *solana.Transaction) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	receipt := &Receipt{Slot: r.slot}
	fail := func(err error) (*Receipt, error) {
		receipt.Err = err
		r.logger.Debug("transaction failed",
			zap.Stringer("signature", receipt.Signature),
			zap.Error(err),
		)
		return receipt, err
	}

	if len(tx.Signatures) == 0 {
		return fail(fmt.Errorf("%w: transaction carries no signatures", ErrSignatureVerification))
	}
	receipt.Signature = tx.Signatures[0]
	if err := tx.VerifySignatures(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrSignatureVerification, err))
	}
	if !r.isRecent(tx.Message.RecentBlockhash) {
		return fail(ErrBlockhashNotFound)
	}
	if _, seen := r.processed[receipt.Signature]; seen {
		return fail(ErrAlreadyProcessed)
	}

	signers := make(map[solana.PublicKey]struct{})
	for _, key := range tx.Message.Signers() {
		signers[key] = struct{}{}
	}

	state := newOverlay(r.store)
	var returnData []byte
	now := r.clock().Unix()
	for i, ci := range tx.Message.Instructions {
		programID, err := tx.Message.Program(ci.ProgramIDIndex)
		if err != nil {
			return fail(fmt.Errorf("instruction %d: failed to resolve program: %w", i, err))
		}
		program, ok := r.programs[programID]
		if !ok {
			return fail(fmt.Errorf("instruction %d: %w: %s", i, ErrUnknownProgram, programID))
		}
		metas, err := ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return fail(fmt.Errorf("instruction %d: failed to resolve accounts: %w", i, err))
		}
		keys := make([]solana.PublicKey, len(metas))
		for j, meta := range metas {
			keys[j] = meta.PublicKey
		}

		ixSigners := make(map[solana.PublicKey]struct{}, len(signers))
		for k := range signers {
			ixSigners[k] = struct{}{}
		}
		ctx := &Context{
			programID:  programID,
			depth:      0,
			state:      state,
			signers:    ixSigners,
			now:        now,
			slot:       r.slot,
			logger:     r.logger.With(zap.Stringer("program", programID)),
			logs:       &receipt.Logs,
			returnData: &returnData,
		}

		receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s invoke [1]", programID))
		if err := program.Process(ctx, keys, ci.Data); err != nil {
			receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s failed: %v", programID, err))
			return fail(fmt.Errorf("instruction %d: %w", i, err))
		}
		receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s success", programID))
	}

	if err := state.commit(); err != nil {
		return fail(fmt.Errorf("failed to commit transaction: %w", err))
	}
	receipt.ReturnData = returnData
	r.advance(receipt.Signature)

	r.logger.Debug("transaction executed",
		zap.Stringer("signature", receipt.Signature),
		zap.Uint64("slot", receipt.Slot),
		zap.Int("instructions", len(tx.Message.Instructions)),
	)
	return receipt, nil
}

func (r *Runtime) isRecent(hash solana.Hash) bool {
	for _, h := range r.blockhashes {
		if h.Equals(hash) {
			return true
		}
	}
	return false
}

// advance closes the current slot with the signature of the transaction that
// landed in it.
func (r *Runtime) advance(signature solana.Signature) {
	r.processed[signature] = r.slot
	prev := r.blockhashes[len(r.blockhashes)-1]
	next := solana.Hash(sha256.Sum256(append(prev[:], signature[:]...)))
	r.blockhashes = append(r.blockhashes, next)
	if len(r.blockhashes) > MaxRecentBlockhashes {
		r.blockhashes = r.blockhashes[1:]
	}
	r.slot++
	for sig, slot := range r.processed {
		if r.slot-slot > MaxRecentBlockhashes {
			delete(r.processed, sig)
		}
	}
}
