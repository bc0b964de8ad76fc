package elgamal

import "golang.org/x/xerrors"

// Parameter errors, returned when a cryptosystem cannot be generated or
// loaded.
var (
	ErrKeyTooShort       = xerrors.New("key size below the configured minimum")
	ErrKeyNotByteAligned = xerrors.New("key size is not a multiple of 8")
	ErrWrongPrimeSize    = xerrors.New("prime does not have the announced size")
	ErrNotSafePrime      = xerrors.New("not a safe prime")
	ErrNotGenerator      = xerrors.New("not a generator of the group")
)

// Errors of keys, encryption and decryption.
var (
	ErrInvalidKey             = xerrors.New("key value out of range")
	ErrMessageTooLarge        = xerrors.New("message too large")
	ErrIncompatibleCiphertext = xerrors.New("ciphertext was not encrypted for this key")
	ErrMalformedPlaintext     = xerrors.New("decrypted data is not a valid plaintext")
	ErrBlockTooLarge          = xerrors.New("ciphertext block larger than its bit size")
)
