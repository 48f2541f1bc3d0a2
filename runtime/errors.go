package runtime

import (
	"errors"
	"fmt"
	"sort"
)

// Error is a numbered program error. Handlers return the sentinels below,
// optionally wrapped with context through fmt.Errorf and %w, and callers
// match them with errors.Is.
type Error struct {
	Code int
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func newError(code int, name, msg string) *Error {
	e := &Error{Code: code, Name: name, Msg: msg}
	registry = append(registry, e)
	return e
}

var registry []*Error

// Framework errors.
var (
	ErrInstructionFallbackNotFound  = newError(101, "InstructionFallbackNotFound", "Fallback functions are not supported")
	ErrInstructionDidNotDeserialize = newError(102, "InstructionDidNotDeserialize", "The program could not deserialize the given instruction")
	ErrMissingSigner                = newError(2002, "ConstraintSigner", "A signer constraint was violated")
	ErrAccountDiscriminatorMismatch = newError(3002, "AccountDiscriminatorMismatch", "Account discriminator did not match what was expected")
	ErrAccountDidNotDeserialize     = newError(3003, "AccountDidNotDeserialize", "Failed to deserialize the account")
	ErrNotEnoughAccountKeys         = newError(3005, "AccountNotEnoughKeys", "Not enough account keys given to the instruction")
	ErrAccountOwnedByWrongProgram   = newError(3007, "AccountOwnedByWrongProgram", "The given account is owned by a different program than expected")
	ErrAccountNotInitialized        = newError(3012, "AccountNotInitialized", "The program expected this account to be already initialized")
	ErrAccountAlreadyInitialized    = newError(3013, "AccountAlreadyInitialized", "The account is already in use")
	ErrUnknownProgram               = newError(3014, "UnknownProgram", "The instruction targets a program that is not deployed")
	ErrSignatureVerification        = newError(4001, "SignatureVerificationFailed", "Transaction signature verification failed")
	ErrBlockhashNotFound            = newError(4002, "BlockhashNotFound", "Transaction references an unknown or expired blockhash")
	ErrInvalidSeeds                 = newError(4003, "InvalidSeeds", "Program derived address seeds do not match the invoking program")
	ErrAlreadyProcessed             = newError(4004, "AlreadyProcessed", "This transaction has already been processed")
)

// Registry and extension errors.
var (
	ErrNotAuthorized          = newError(6000, "NotAuthorized", "Invalid signer")
	ErrInvalidParam           = newError(6001, "InvalidParam", "Invalid parameter")
	ErrInvalidAccount         = newError(6002, "InvalidAccount", "Account does not match the expected key")
	ErrInvalidMint            = newError(6003, "InvalidMint", "Invalid mint")
	ErrInvalidProof           = newError(6004, "InvalidProof", "Merkle proof verification failed")
	ErrAlreadyClaimed         = newError(6005, "AlreadyClaimed", "Yield has already been claimed for the current index")
	ErrAlreadyEarns           = newError(6006, "AlreadyEarns", "Token account is already an earner")
	ErrNotEarning             = newError(6007, "NotEarning", "Token account is not an earner")
	ErrNoActiveClaim          = newError(6008, "NoActiveClaim", "There is no active claim cycle")
	ErrMathOverflow           = newError(6009, "MathOverflow", "Arithmetic overflow")
	ErrMathUnderflow          = newError(6010, "MathUnderflow", "Arithmetic underflow")
	ErrTypeConversion         = newError(6011, "TypeConversionError", "Value does not fit the target type")
	ErrInsufficientCollateral = newError(6012, "InsufficientCollateral", "Vault balance is below the extension supply")
	ErrMutableOwner           = newError(6013, "MutableOwner", "Token account owner can be changed")
	ErrExceedsMaxYield        = newError(6014, "ExceedsMaxYield", "Claim exceeds the maximum yield of the cycle")
)

// Token program errors.
var (
	ErrInsufficientFunds = newError(6100, "InsufficientFunds", "Insufficient funds")
	ErrOwnerMismatch     = newError(6101, "OwnerMismatch", "Owner does not match")
	ErrMintMismatch      = newError(6102, "MintMismatch", "Account not associated with this mint")
	ErrImmutableOwner    = newError(6103, "ImmutableOwner", "Account owner cannot be changed")
)

// Errors returns every registered error ordered by code.
func Errors() []*Error {
	out := make([]*Error, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ErrorByCode looks up a registered error.
func ErrorByCode(code int) (*Error, bool) {
	for _, e := range registry {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}
