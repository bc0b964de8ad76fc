// Package store persists and transports the objects of svelib.
//
// Every object has a protobuf message made of plain fields, with numbers
// stored as big-endian bytes. Decoding always goes through the validating
// constructors of the elgamal and threshold packages, so that a decoded
// cryptosystem is checked again and fingerprints are recomputed rather
// than trusted.
package store

import (
	"math/big"

	"github.com/HRodriguez/svelib"
	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/threshold"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"
)

// ErrMalformedMessage is returned when a decoded message is inconsistent.
var ErrMalformedMessage = xerrors.New("malformed message")

// CryptosystemMsg is the wire form of an elgamal.Cryptosystem.
type CryptosystemMsg struct {
	BitSize   int
	Prime     []byte
	Generator []byte
}

// PublicKeyMsg is the wire form of an elgamal.PublicKey.
type PublicKeyMsg struct {
	Cryptosystem CryptosystemMsg
	Value        []byte
}

// PrivateKeyMsg is the wire form of an elgamal.PrivateKey.
type PrivateKeyMsg struct {
	Cryptosystem CryptosystemMsg
	Value        []byte
}

// CiphertextMsg is the wire form of an elgamal.Ciphertext. Gammas and
// Deltas have one entry per block.
type CiphertextMsg struct {
	BitSize     int
	Fingerprint string
	Gammas      [][]byte
	Deltas      [][]byte
}

// ThresholdPublicKeyMsg is the wire form of a threshold.PublicKey.
type ThresholdPublicKeyMsg struct {
	Cryptosystem      CryptosystemMsg
	NumTrustees       int
	Threshold         int
	Value             []byte
	PartialPublicKeys [][]byte
}

// ThresholdPrivateKeyMsg is the wire form of a threshold.PrivateKey.
type ThresholdPrivateKeyMsg struct {
	PublicKey ThresholdPublicKeyMsg
	Trustee   int
	Share     []byte
}

// CommitmentMsg is the wire form of a threshold.Commitment.
type CommitmentMsg struct {
	Cryptosystem       CryptosystemMsg
	NumTrustees        int
	Threshold          int
	PublicCoefficients [][]byte
	EncryptedShares    []*CiphertextMsg
}

// PartialDecryptionMsg is the wire form of a threshold.PartialDecryption,
// one entry per block in every slice.
type PartialDecryptionMsg struct {
	BitSize int
	Values  [][]byte
	A       [][]byte
	B       [][]byte
	T       [][]byte
}

func toBytes(vals []*big.Int) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = v.Bytes()
	}
	return out
}

func toInts(bufs [][]byte) []*big.Int {
	out := make([]*big.Int, len(bufs))
	for i, b := range bufs {
		out[i] = new(big.Int).SetBytes(b)
	}
	return out
}

// NewCryptosystemMsg returns the message of cs.
func NewCryptosystemMsg(cs *elgamal.Cryptosystem) CryptosystemMsg {
	return CryptosystemMsg{
		BitSize:   cs.BitSize(),
		Prime:     cs.Prime().Bytes(),
		Generator: cs.Generator().Bytes(),
	}
}

// Cryptosystem validates the message with elgamal.Load.
func (m CryptosystemMsg) Cryptosystem(params svelib.Params) (*elgamal.Cryptosystem, error) {
	return elgamal.Load(params, m.BitSize,
		new(big.Int).SetBytes(m.Prime), new(big.Int).SetBytes(m.Generator))
}

// NewPublicKeyMsg returns the message of pk.
func NewPublicKeyMsg(pk *elgamal.PublicKey) PublicKeyMsg {
	return PublicKeyMsg{Cryptosystem: NewCryptosystemMsg(pk.Cryptosystem()), Value: pk.Value().Bytes()}
}

// PublicKey returns the decoded key.
func (m PublicKeyMsg) PublicKey(params svelib.Params) (*elgamal.PublicKey, error) {
	cs, err := m.Cryptosystem.Cryptosystem(params)
	if err != nil {
		return nil, err
	}
	return elgamal.NewPublicKey(cs, new(big.Int).SetBytes(m.Value))
}

// NewPrivateKeyMsg returns the message of sk.
func NewPrivateKeyMsg(sk *elgamal.PrivateKey) PrivateKeyMsg {
	return PrivateKeyMsg{Cryptosystem: NewCryptosystemMsg(sk.Cryptosystem()), Value: sk.Value().Bytes()}
}

// PrivateKey returns the decoded key.
func (m PrivateKeyMsg) PrivateKey(params svelib.Params) (*elgamal.PrivateKey, error) {
	cs, err := m.Cryptosystem.Cryptosystem(params)
	if err != nil {
		return nil, err
	}
	return elgamal.NewPrivateKey(cs, new(big.Int).SetBytes(m.Value))
}

// NewCiphertextMsg returns the message of ct.
func NewCiphertextMsg(ct *elgamal.Ciphertext) *CiphertextMsg {
	m := &CiphertextMsg{BitSize: ct.BitSize(), Fingerprint: ct.PublicKeyFingerprint()}
	for _, b := range ct.Blocks() {
		m.Gammas = append(m.Gammas, b.Gamma.Bytes())
		m.Deltas = append(m.Deltas, b.Delta.Bytes())
	}
	return m
}

// Ciphertext returns the decoded ciphertext.
func (m *CiphertextMsg) Ciphertext() (*elgamal.Ciphertext, error) {
	if len(m.Gammas) != len(m.Deltas) {
		return nil, xerrors.Errorf("%d gammas and %d deltas: %w", len(m.Gammas), len(m.Deltas), ErrMalformedMessage)
	}
	blocks := make([]elgamal.Block, len(m.Gammas))
	for i := range blocks {
		blocks[i] = elgamal.Block{
			Gamma: new(big.Int).SetBytes(m.Gammas[i]),
			Delta: new(big.Int).SetBytes(m.Deltas[i]),
		}
	}
	return elgamal.NewCiphertext(m.BitSize, m.Fingerprint, blocks)
}

// NewThresholdPublicKeyMsg returns the message of pk.
func NewThresholdPublicKeyMsg(pk *threshold.PublicKey) ThresholdPublicKeyMsg {
	return ThresholdPublicKeyMsg{
		Cryptosystem:      NewCryptosystemMsg(pk.Cryptosystem()),
		NumTrustees:       pk.NumTrustees(),
		Threshold:         pk.Threshold(),
		Value:             pk.Value().Bytes(),
		PartialPublicKeys: toBytes(pk.PartialPublicKeys()),
	}
}

// PublicKey returns the decoded key.
func (m ThresholdPublicKeyMsg) PublicKey(params svelib.Params) (*threshold.PublicKey, error) {
	cs, err := m.Cryptosystem.Cryptosystem(params)
	if err != nil {
		return nil, err
	}
	return threshold.NewPublicKey(cs, m.NumTrustees, m.Threshold,
		new(big.Int).SetBytes(m.Value), toInts(m.PartialPublicKeys))
}

// NewThresholdPrivateKeyMsg returns the message of sk.
func NewThresholdPrivateKeyMsg(sk *threshold.PrivateKey) ThresholdPrivateKeyMsg {
	return ThresholdPrivateKeyMsg{
		PublicKey: NewThresholdPublicKeyMsg(sk.PublicKey()),
		Trustee:   sk.Trustee(),
		Share:     sk.Share().Bytes(),
	}
}

// PrivateKey returns the decoded key.
func (m ThresholdPrivateKeyMsg) PrivateKey(params svelib.Params) (*threshold.PrivateKey, error) {
	pub, err := m.PublicKey.PublicKey(params)
	if err != nil {
		return nil, err
	}
	return threshold.NewPrivateKey(pub, m.Trustee, new(big.Int).SetBytes(m.Share))
}

// NewCommitmentMsg returns the message of c.
func NewCommitmentMsg(c *threshold.Commitment) *CommitmentMsg {
	m := &CommitmentMsg{
		Cryptosystem:       NewCryptosystemMsg(c.Cryptosystem()),
		NumTrustees:        c.NumTrustees(),
		Threshold:          c.Threshold(),
		PublicCoefficients: toBytes(c.PublicCoefficients()),
	}
	for _, ct := range c.EncryptedShares() {
		m.EncryptedShares = append(m.EncryptedShares, NewCiphertextMsg(ct))
	}
	return m
}

// Commitment returns the decoded commitment.
func (m *CommitmentMsg) Commitment(params svelib.Params) (*threshold.Commitment, error) {
	cs, err := m.Cryptosystem.Cryptosystem(params)
	if err != nil {
		return nil, err
	}
	shares := make([]*elgamal.Ciphertext, len(m.EncryptedShares))
	for i, sm := range m.EncryptedShares {
		if sm == nil {
			return nil, xerrors.Errorf("missing share %d: %w", i+1, ErrMalformedMessage)
		}
		if shares[i], err = sm.Ciphertext(); err != nil {
			return nil, err
		}
	}
	return threshold.NewCommitment(cs, m.NumTrustees, m.Threshold, toInts(m.PublicCoefficients), shares)
}

// NewPartialDecryptionMsg returns the message of pd.
func NewPartialDecryptionMsg(pd *threshold.PartialDecryption) *PartialDecryptionMsg {
	m := &PartialDecryptionMsg{BitSize: pd.BitSize()}
	for _, b := range pd.Blocks() {
		m.Values = append(m.Values, b.Value.Bytes())
		m.A = append(m.A, b.Proof.A.Bytes())
		m.B = append(m.B, b.Proof.B.Bytes())
		m.T = append(m.T, b.Proof.T.Bytes())
	}
	return m
}

// PartialDecryption returns the decoded partial decryption. The proofs are
// only checked when it is added to a threshold.Combinator.
func (m *PartialDecryptionMsg) PartialDecryption() (*threshold.PartialDecryption, error) {
	n := len(m.Values)
	if len(m.A) != n || len(m.B) != n || len(m.T) != n {
		return nil, xerrors.Errorf("partial decryption fields of different length: %w", ErrMalformedMessage)
	}
	blocks := make([]threshold.PartialBlock, n)
	for i := range blocks {
		blocks[i] = threshold.PartialBlock{
			Value: new(big.Int).SetBytes(m.Values[i]),
			Proof: threshold.Proof{
				A: new(big.Int).SetBytes(m.A[i]),
				B: new(big.Int).SetBytes(m.B[i]),
				T: new(big.Int).SetBytes(m.T[i]),
			},
		}
	}
	return threshold.NewPartialDecryption(m.BitSize, blocks)
}

// Encode returns the protobuf encoding of one of the messages of this
// package.
func Encode(msg interface{}) ([]byte, error) {
	buf, err := protobuf.Encode(msg)
	if err != nil {
		return nil, xerrors.Errorf("encoding: %v", err)
	}
	return buf, nil
}

// Decode fills msg, a pointer to one of the messages of this package.
func Decode(buf []byte, msg interface{}) error {
	if err := protobuf.Decode(buf, msg); err != nil {
		return xerrors.Errorf("%v: %w", err, ErrMalformedMessage)
	}
	return nil
}
