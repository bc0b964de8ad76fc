package store

import (
	"encoding/binary"

	"github.com/HRodriguez/svelib"
	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/threshold"
	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/onet/v3/log"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// ErrNotFound is returned when a key has no entry.
var ErrNotFound = xerrors.New("entry not found")

var (
	bucketCryptosystems = []byte("cryptosystems")
	bucketPrivateKeys   = []byte("privatekeys")
	bucketThresholdKeys = []byte("thresholdkeys")
	bucketCommitments   = []byte("commitments")
	bucketCiphertexts   = []byte("ciphertexts")
)

var allBuckets = [][]byte{bucketCryptosystems, bucketPrivateKeys, bucketThresholdKeys,
	bucketCommitments, bucketCiphertexts}

// KeyStore is the trusted local storage of a trustee: its key pairs, the
// commitments of the setups it takes part in, and ciphertexts. Entries are
// protobuf messages in a bbolt database.
type KeyStore struct {
	db     *bbolt.DB
	params svelib.Params
}

// Open opens or creates the database at path. Decoded cryptosystems are
// validated with params.
func Open(path string, params svelib.Params) (*KeyStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, svelib.Annotate(err, "open key store")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, svelib.Annotate(err, "create buckets")
	}
	log.Lvl3("opened key store", path)
	return &KeyStore{db: db, params: params}, nil
}

// Close releases the database.
func (s *KeyStore) Close() error {
	return s.db.Close()
}

func (s *KeyStore) put(bucket, key []byte, msg interface{}) error {
	buf, err := Encode(msg)
	if err != nil {
		return err
	}
	return svelib.Wrap(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(key, buf)
	}))
}

func (s *KeyStore) get(bucket, key []byte, msg interface{}) error {
	var buf []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return xerrors.Errorf("%s/%x: %w", bucket, key, ErrNotFound)
		}
		// v is only valid during the transaction
		buf = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return err
	}
	return Decode(buf, msg)
}

// Names returns the names of the entries of one kind: "cryptosystems",
// "privatekeys" or "thresholdkeys".
func (s *KeyStore) Names(kind string) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return xerrors.Errorf("no bucket %q: %w", kind, ErrNotFound)
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// PutCryptosystem stores cs under name.
func (s *KeyStore) PutCryptosystem(name string, cs *elgamal.Cryptosystem) error {
	msg := NewCryptosystemMsg(cs)
	return s.put(bucketCryptosystems, []byte(name), &msg)
}

// Cryptosystem loads the cryptosystem stored under name.
func (s *KeyStore) Cryptosystem(name string) (*elgamal.Cryptosystem, error) {
	var msg CryptosystemMsg
	if err := s.get(bucketCryptosystems, []byte(name), &msg); err != nil {
		return nil, err
	}
	return msg.Cryptosystem(s.params)
}

// PutPrivateKey stores sk under name.
func (s *KeyStore) PutPrivateKey(name string, sk *elgamal.PrivateKey) error {
	msg := NewPrivateKeyMsg(sk)
	return s.put(bucketPrivateKeys, []byte(name), &msg)
}

// PrivateKey loads the private key stored under name.
func (s *KeyStore) PrivateKey(name string) (*elgamal.PrivateKey, error) {
	var msg PrivateKeyMsg
	if err := s.get(bucketPrivateKeys, []byte(name), &msg); err != nil {
		return nil, err
	}
	return msg.PrivateKey(s.params)
}

// PutThresholdPrivateKey stores sk under name.
func (s *KeyStore) PutThresholdPrivateKey(name string, sk *threshold.PrivateKey) error {
	msg := NewThresholdPrivateKeyMsg(sk)
	return s.put(bucketThresholdKeys, []byte(name), &msg)
}

// ThresholdPrivateKey loads the threshold private key stored under name.
func (s *KeyStore) ThresholdPrivateKey(name string) (*threshold.PrivateKey, error) {
	var msg ThresholdPrivateKeyMsg
	if err := s.get(bucketThresholdKeys, []byte(name), &msg); err != nil {
		return nil, err
	}
	return msg.PrivateKey(s.params)
}

// NewSetupID returns a fresh identifier for a key generation run.
func NewSetupID() uuid.UUID {
	return uuid.NewV4()
}

func trusteeKey(trustee int) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(trustee))
	return k[:]
}

// PutCommitment stores the commitment of trustee in the setup setupID.
// Each setup has its own sub-bucket so that the commitments of one run
// are listed together.
func (s *KeyStore) PutCommitment(setupID uuid.UUID, trustee int, c *threshold.Commitment) error {
	buf, err := Encode(NewCommitmentMsg(c))
	if err != nil {
		return err
	}
	return svelib.Wrap(s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketCommitments).CreateBucketIfNotExists(setupID.Bytes())
		if err != nil {
			return err
		}
		return b.Put(trusteeKey(trustee), buf)
	}))
}

// Commitments returns the stored commitments of setupID by trustee.
func (s *KeyStore) Commitments(setupID uuid.UUID) (map[int]*threshold.Commitment, error) {
	raw := make(map[int][]byte)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCommitments).Bucket(setupID.Bytes())
		if b == nil {
			return xerrors.Errorf("setup %s: %w", setupID, ErrNotFound)
		}
		return b.ForEach(func(k, v []byte) error {
			raw[int(binary.BigEndian.Uint32(k))] = append([]byte{}, v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out := make(map[int]*threshold.Commitment, len(raw))
	for trustee, buf := range raw {
		msg := &CommitmentMsg{}
		if err := Decode(buf, msg); err != nil {
			return nil, err
		}
		c, err := msg.Commitment(s.params)
		if err != nil {
			return nil, xerrors.Errorf("commitment of trustee %d: %w", trustee, err)
		}
		out[trustee] = c
	}
	return out, nil
}

// PutCiphertext stores ct under a new random identifier.
func (s *KeyStore) PutCiphertext(ct *elgamal.Ciphertext) (uuid.UUID, error) {
	id := uuid.NewV4()
	if err := s.put(bucketCiphertexts, id.Bytes(), NewCiphertextMsg(ct)); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Ciphertext loads the ciphertext stored under id.
func (s *KeyStore) Ciphertext(id uuid.UUID) (*elgamal.Ciphertext, error) {
	msg := &CiphertextMsg{}
	if err := s.get(bucketCiphertexts, id.Bytes(), msg); err != nil {
		return nil, err
	}
	return msg.Ciphertext()
}
