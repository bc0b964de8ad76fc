// svetool generates cryptosystems and keys, encrypts and decrypts texts,
// and runs local threshold setups. Everything is kept in a bbolt key store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/HRodriguez/svelib"
	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/progress"
	"github.com/HRodriguez/svelib/store"
	"github.com/HRodriguez/svelib/threshold"
	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
	"gopkg.in/urfave/cli.v1"
)

var cmds = cli.Commands{
	{
		Name:   "params",
		Usage:  "print the security parameters in use, as TOML",
		Action: params,
	},
	{
		Name:    "cryptosystem",
		Usage:   "generate a new cryptosystem",
		Aliases: []string{"cs"},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "name, n",
				Usage: "name under which the cryptosystem is stored",
			},
			cli.IntFlag{
				Name:  "bits, b",
				Usage: "size of the prime, defaults to the size of the security level",
			},
		},
		Action: cryptosystem,
	},
	{
		Name:    "keypair",
		Usage:   "generate a key pair in a stored cryptosystem",
		Aliases: []string{"kp"},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "cryptosystem, cs",
				Usage: "name of the cryptosystem",
			},
			cli.StringFlag{
				Name:  "name, n",
				Usage: "name under which the key pair is stored",
			},
		},
		Action: keypair,
	},
	{
		Name:    "encrypt",
		Usage:   "encrypt a text for a stored key and print the ciphertext id",
		Aliases: []string{"e"},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "key, k",
				Usage: "name of the key pair",
			},
			cli.StringFlag{
				Name:  "text, t",
				Usage: "the text to encrypt",
			},
			cli.IntFlag{
				Name:  "pad, p",
				Usage: "pad the text to at least this many bytes",
			},
		},
		Action: encrypt,
	},
	{
		Name:    "decrypt",
		Usage:   "decrypt a stored ciphertext",
		Aliases: []string{"d"},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "key, k",
				Usage: "name of the key pair",
			},
			cli.StringFlag{
				Name:  "id",
				Usage: "id of the ciphertext",
			},
			cli.BoolFlag{
				Name:  "force, f",
				Usage: "decrypt even if the ciphertext was made for another key",
			},
		},
		Action: decrypt,
	},
	{
		Name:  "threshold",
		Usage: "run a local threshold setup, encrypt a text for it and decrypt it again",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "cryptosystem, cs",
				Usage: "name of the cryptosystem",
			},
			cli.IntFlag{
				Name:  "trustees, n",
				Value: 5,
				Usage: "number of trustees",
			},
			cli.IntFlag{
				Name:  "threshold, k",
				Value: 3,
				Usage: "number of trustees needed to decrypt",
			},
			cli.StringFlag{
				Name:  "text, t",
				Value: "test",
				Usage: "the text to encrypt",
			},
		},
		Action: thresholdDemo,
	},
}

func newApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "svetool"
	cliApp.Usage = "Work with threshold ElGamal cryptosystems and keys."
	cliApp.Version = "0.1"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
		cli.StringFlag{
			Name:  "db",
			Value: "svetool.db",
			Usage: "path to the key store",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML file with the security parameters",
		},
		cli.StringFlag{
			Name:  "level, l",
			Value: svelib.Normal.String(),
			Usage: "security level, when no config file is given",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	return cliApp
}

func main() {
	log.ErrFatal(newApp().Run(os.Args))
}

func loadParams(c *cli.Context) (svelib.Params, error) {
	if path := c.GlobalString("config"); path != "" {
		return svelib.LoadParams(path)
	}
	level, err := svelib.ParseSecurityLevel(c.GlobalString("level"))
	if err != nil {
		return svelib.Params{}, err
	}
	return svelib.DefaultParams(level), nil
}

func openStore(c *cli.Context) (*store.KeyStore, error) {
	p, err := loadParams(c)
	if err != nil {
		return nil, err
	}
	return store.Open(c.GlobalString("db"), p)
}

func required(c *cli.Context, names ...string) error {
	for _, n := range names {
		if c.String(n) == "" {
			return xerrors.Errorf("--%s flag is required", n)
		}
	}
	return nil
}

func params(c *cli.Context) error {
	p, err := loadParams(c)
	if err != nil {
		return err
	}
	return p.EncodeTOML(c.App.Writer)
}

func cryptosystem(c *cli.Context) error {
	if err := required(c, "name"); err != nil {
		return err
	}
	p, err := loadParams(c)
	if err != nil {
		return err
	}
	bits := c.Int("bits")
	if bits == 0 {
		bits = p.DefaultBitSize
	}

	mon := progress.NewMonitor("cryptosystem", 0)
	mon.OnTick(func(m *progress.Monitor) {
		log.Lvlf2("%s: %d candidates", m.Name(), m.Ticks())
	}, 1000)
	log.Infof("generating a %d bits cryptosystem, this may take a while", bits)
	cs, err := elgamal.Generate(context.Background(), p, bits, nil, mon)
	if err != nil {
		return err
	}

	ks, err := store.Open(c.GlobalString("db"), p)
	if err != nil {
		return err
	}
	defer ks.Close()
	if err := ks.PutCryptosystem(c.String("name"), cs); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %d bits, generator %s\n", c.String("name"), cs.BitSize(), cs.Generator())
	return nil
}

func keypair(c *cli.Context) error {
	if err := required(c, "cryptosystem", "name"); err != nil {
		return err
	}
	ks, err := openStore(c)
	if err != nil {
		return err
	}
	defer ks.Close()

	cs, err := ks.Cryptosystem(c.String("cryptosystem"))
	if err != nil {
		return err
	}
	kp := elgamal.NewKeyPair(cs, nil)
	if err := ks.PutPrivateKey(c.String("name"), kp.Private); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, kp.Public.Fingerprint())
	return nil
}

func encrypt(c *cli.Context) error {
	if err := required(c, "key"); err != nil {
		return err
	}
	ks, err := openStore(c)
	if err != nil {
		return err
	}
	defer ks.Close()

	sk, err := ks.PrivateKey(c.String("key"))
	if err != nil {
		return err
	}
	ct, err := sk.PublicKey().EncryptText(context.Background(), c.String("text"),
		&elgamal.EncryptOptions{PadTo: c.Int("pad")})
	if err != nil {
		return err
	}
	id, err := ks.PutCiphertext(ct)
	if err != nil {
		return err
	}
	log.Lvlf1("stored %d blocks", ct.Len())
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

func decrypt(c *cli.Context) error {
	if err := required(c, "key", "id"); err != nil {
		return err
	}
	id, err := uuid.FromString(c.String("id"))
	if err != nil {
		return svelib.Annotate(err, "parse id")
	}
	ks, err := openStore(c)
	if err != nil {
		return err
	}
	defer ks.Close()

	sk, err := ks.PrivateKey(c.String("key"))
	if err != nil {
		return err
	}
	ct, err := ks.Ciphertext(id)
	if err != nil {
		return err
	}
	text, err := sk.DecryptText(context.Background(), ct, &elgamal.DecryptOptions{Force: c.Bool("force")})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}

// thresholdDemo plays every trustee of a setup. Commitments and threshold
// keys go through the key store as they would between real trustees.
func thresholdDemo(c *cli.Context) error {
	if err := required(c, "cryptosystem"); err != nil {
		return err
	}
	ks, err := openStore(c)
	if err != nil {
		return err
	}
	defer ks.Close()
	cs, err := ks.Cryptosystem(c.String("cryptosystem"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	n, k := c.Int("trustees"), c.Int("threshold")
	setup, err := threshold.NewSetup(cs, n, k)
	if err != nil {
		return err
	}
	pairs := make([]*elgamal.KeyPair, n)
	for i := range pairs {
		pairs[i] = elgamal.NewKeyPair(cs, nil)
		if err := setup.AddTrusteePublicKey(i+1, pairs[i].Public); err != nil {
			return err
		}
	}

	id := store.NewSetupID()
	for i := 1; i <= n; i++ {
		cm, err := setup.GenerateCommitment(ctx, nil)
		if err != nil {
			return err
		}
		if err := ks.PutCommitment(id, i, cm); err != nil {
			return err
		}
	}
	commitments, err := ks.Commitments(id)
	if err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		if err := setup.AddTrusteeCommitment(i, commitments[i]); err != nil {
			return err
		}
	}
	fp, err := setup.Fingerprint()
	if err != nil {
		return err
	}
	log.Infof("setup %s has fingerprint %s", id, fp)

	var pub *threshold.PublicKey
	for i := 1; i <= n; i++ {
		var sk *threshold.PrivateKey
		pub, sk, err = setup.GenerateKeyPair(ctx, i, pairs[i-1].Private)
		if err != nil {
			return err
		}
		if err := ks.PutThresholdPrivateKey(fmt.Sprintf("%s-trustee-%d", id, i), sk); err != nil {
			return err
		}
	}

	ct, err := pub.EncryptText(ctx, c.String("text"), nil)
	if err != nil {
		return err
	}
	comb, err := threshold.NewCombinator(pub, ct)
	if err != nil {
		return err
	}
	for i := 1; i <= k; i++ {
		sk, err := ks.ThresholdPrivateKey(fmt.Sprintf("%s-trustee-%d", id, i))
		if err != nil {
			return err
		}
		pd, err := sk.GeneratePartialDecryption(ctx, ct, nil)
		if err != nil {
			return err
		}
		if err := comb.AddPartialDecryption(i, pd); err != nil {
			return err
		}
	}
	text, err := comb.DecryptText(ctx, nil)
	if err != nil {
		return err
	}
	if text != c.String("text") {
		return xerrors.New("threshold decryption returned another text")
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}
