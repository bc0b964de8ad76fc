package threshold

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// ErrEmptyPolynomial is returned for a polynomial without coefficients.
	ErrEmptyPolynomial = xerrors.New("polynomial needs at least one coefficient")
	// ErrNegativeDegree is returned when asking for a random polynomial of
	// negative degree.
	ErrNegativeDegree = xerrors.New("negative polynomial degree")
	// ErrCoefficientIndex is returned when accessing a coefficient that
	// does not exist.
	ErrCoefficientIndex = xerrors.New("coefficient index out of range")
)

// Errors of the key generation.
var (
	ErrInvalidThreshold       = xerrors.New("threshold must be between 1 and the number of trustees")
	ErrTrusteeOutOfRange      = xerrors.New("trustee index out of range")
	ErrIncompatibleKey        = xerrors.New("key does not match the setup")
	ErrSetupState             = xerrors.New("setup is missing data for this operation")
	ErrIncompatibleCommitment = xerrors.New("commitment does not match the setup")
	ErrMalformedCommitment    = xerrors.New("malformed commitment")

	// ErrInvalidCommitment is a security error: a trustee published
	// inconsistent data during the key generation.
	ErrInvalidCommitment = xerrors.New("invalid commitment")
)

// Errors of the threshold decryption.
var (
	ErrIncompatiblePartialDecryption  = xerrors.New("partial decryption does not match the ciphertext")
	ErrInsufficientPartialDecryptions = xerrors.New("not enough partial decryptions")
	ErrInvalidPartialDecryption       = xerrors.New("malformed partial decryption")

	// ErrInvalidPartialDecryptionProof is a security error: a trustee sent
	// a partial decryption that does not match its partial public key.
	ErrInvalidPartialDecryptionProof = xerrors.New("invalid partial decryption proof")
)

// CommitmentError tells which trustee published an invalid commitment.
type CommitmentError struct {
	Trustee int
	Reason  string
}

func (e *CommitmentError) Error() string {
	return fmt.Sprintf("%v of trustee %d: %s", ErrInvalidCommitment, e.Trustee, e.Reason)
}

// Unwrap returns ErrInvalidCommitment.
func (e *CommitmentError) Unwrap() error {
	return ErrInvalidCommitment
}

// ProofError tells which trustee and which block failed the verification.
type ProofError struct {
	Trustee int
	Block   int
	Reason  string
}

func (e *ProofError) Error() string {
	return fmt.Sprintf("%v from trustee %d at block %d: %s",
		ErrInvalidPartialDecryptionProof, e.Trustee, e.Block, e.Reason)
}

// Unwrap returns ErrInvalidPartialDecryptionProof.
func (e *ProofError) Unwrap() error {
	return ErrInvalidPartialDecryptionProof
}
