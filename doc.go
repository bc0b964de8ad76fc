/*
Package svelib is a toolkit for verifiable, threshold-decrypted electronic
voting built on ElGamal over the multiplicative group of a safe prime.

The sub-packages are layered bottom-up:

  bitstream  bit-granular buffers used as plaintext containers
  progress   optional progress reporting for long computations
  elgamal    cryptosystem generation, key pairs, encryption, ciphertexts
  threshold  distributed key generation and k-out-of-n decryption with
             Chaum-Pedersen style proofs on every partial decryption
  mixnet     ciphertext collections, re-encryption and shuffling
  store      protobuf encodings and a bbolt key store

This package holds what is shared between them: the security parameters
(see Params) and the Error wrapper used to annotate failures with a stack
frame.
*/
package svelib
