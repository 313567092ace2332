package security

import (
	"strings"
	"testing"
)

func TestArgon2HashAndVerify(t *testing.T) {
	// Small parameters keep the test fast; verification reads the parameters
	// back out of the encoded hash anyway.
	h := NewArgon2Hasher(Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	encoded, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}
	if !h.Verify("correct horse battery staple", encoded) {
		t.Error("correct password rejected")
	}
	if h.Verify("incorrect horse", encoded) {
		t.Error("wrong password accepted")
	}
}

func TestArgon2HashesAreSalted(t *testing.T) {
	h := NewArgon2Hasher(Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	a, err := h.Hash("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Hash("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
	if !h.Verify("hunter2", a) || !h.Verify("hunter2", b) {
		t.Fatal("salted hashes do not verify")
	}
}

func TestArgon2VerifyMalformed(t *testing.T) {
	h := NewArgon2Hasher(DefaultArgon2Params())
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$not-base64!$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
	} {
		if h.Verify("anything", encoded) {
			t.Errorf("malformed hash %q verified true", encoded)
		}
	}
}
