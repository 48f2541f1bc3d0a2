package runtime

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const maxInvokeDepth = 4

// Context is the view of the ledger handed to a program while it processes
// one instruction. Writes go to the transaction's pending change set and are
// only committed once every instruction of the transaction succeeded.
type Context struct {
	programID  solana.PublicKey
	depth      int
	state      *overlay
	signers    map[solana.PublicKey]struct{}
	now        int64
	slot       uint64
	logger     *zap.Logger
	logs       *[]string
	returnData *[]byte
}

// ProgramID is the program currently executing.
func (c *Context) ProgramID() solana.PublicKey { return c.programID }

// Now is the unix timestamp of the executing slot.
func (c *Context) Now() int64 { return c.now }

func (c *Context) Slot() uint64 { return c.slot }

func (c *Context) Logger() *zap.Logger { return c.logger }

// IsSigner reports whether key signed the transaction or was signed for by
// a calling program.
func (c *Context) IsSigner(key solana.PublicKey) bool {
	_, ok := c.signers[key]
	return ok
}

func (c *Context) RequireSigner(key solana.PublicKey) error {
	if !c.IsSigner(key) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, key)
	}
	return nil
}

// SignAsProgram derives the program address of seeds under the executing
// program and marks it as a signer for the rest of the instruction.
func (c *Context) SignAsProgram(seeds ...[]byte) (solana.PublicKey, error) {
	address, err := solana.CreateProgramAddress(seeds, c.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
	}
	c.signers[address] = struct{}{}
	return address, nil
}

// Invoke runs fn as program. Signers of the caller, including program
// signers, carry over to the callee.
func (c *Context) Invoke(program solana.PublicKey, fn func(*Context) error) error {
	if c.depth+1 > maxInvokeDepth {
		return fmt.Errorf("invoke depth exceeded calling %s", program)
	}
	signers := make(map[solana.PublicKey]struct{}, len(c.signers))
	for k := range c.signers {
		signers[k] = struct{}{}
	}
	callee := *c
	callee.programID = program
	callee.depth = c.depth + 1
	callee.signers = signers
	callee.logger = c.logger.With(zap.Stringer("program", program))

	c.appendLog(fmt.Sprintf("Program %s invoke [%d]", program, callee.depth+1))
	if err := fn(&callee); err != nil {
		c.appendLog(fmt.Sprintf("Program %s failed: %v", program, err))
		return err
	}
	c.appendLog(fmt.Sprintf("Program %s success", program))
	return nil
}

// Get returns the account at address, or nil when none exists.
func (c *Context) Get(address solana.PublicKey) (*Account, error) {
	acc, err := c.state.get(address)
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", address, err)
	}
	return acc, nil
}

func (c *Context) Exists(address solana.PublicKey) (bool, error) {
	acc, err := c.Get(address)
	if err != nil {
		return false, err
	}
	return acc != nil, nil
}

// Load decodes the account at address into v after checking that it exists
// and belongs to owner.
func (c *Context) Load(address, owner solana.PublicKey, name string, v interface{}) error {
	acc, err := c.Get(address)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("%w: %s %s", ErrAccountNotInitialized, name, address)
	}
	if !acc.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s %s", ErrAccountOwnedByWrongProgram, name, address)
	}
	return UnmarshalAccount(name, acc.Data, v)
}

// Save serializes v into the account at address, owned by the executing
// program. Accounts of other programs cannot be written.
func (c *Context) Save(address solana.PublicKey, name string, v interface{}) error {
	existing, err := c.Get(address)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Owner.Equals(c.programID) {
		return fmt.Errorf("%w: %s", ErrAccountOwnedByWrongProgram, address)
	}
	data, err := MarshalAccount(name, v)
	if err != nil {
		return err
	}
	c.state.put(address, &Account{Owner: c.programID, Data: data})
	return nil
}

// Close deletes an account owned by the executing program.
func (c *Context) Close(address solana.PublicKey) error {
	existing, err := c.Get(address)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotInitialized, address)
	}
	if !existing.Owner.Equals(c.programID) {
		return fmt.Errorf("%w: %s", ErrAccountOwnedByWrongProgram, address)
	}
	c.state.remove(address)
	return nil
}

// Emit records an event in the transaction logs.
func (c *Context) Emit(name string, event interface{}) error {
	data, err := EncodeEvent(name, event)
	if err != nil {
		return err
	}
	c.appendLog("Program data: " + base64.StdEncoding.EncodeToString(data))
	c.logger.Debug("event emitted", zap.String("event", name))
	return nil
}

// Msg writes a program log line.
func (c *Context) Msg(format string, args ...interface{}) {
	c.appendLog("Program log: " + fmt.Sprintf(format, args...))
}

// SetReturnData replaces the data returned to the transaction sender.
func (c *Context) SetReturnData(data []byte) {
	*c.returnData = append((*c.returnData)[:0], data...)
}

func (c *Context) appendLog(line string) {
	*c.logs = append(*c.logs, line)
}
