package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ems-platform/auth-service/internal/config"
)

func testHashParams() config.PasswordHashConfig {
	// Deliberately light parameters to keep the suite fast.
	return config.PasswordHashConfig{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2idPasswordService_HashAndVerify(t *testing.T) {
	svc, err := NewArgon2idPasswordService(testHashParams())
	require.NoError(t, err)

	hash, err := svc.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := svc.CheckPasswordHash("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckPasswordHash("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2idPasswordService_UniqueSalts(t *testing.T) {
	svc, err := NewArgon2idPasswordService(testHashParams())
	require.NoError(t, err)

	first, err := svc.HashPassword("same password")
	require.NoError(t, err)
	second, err := svc.HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2idPasswordService_CrossParameterVerification(t *testing.T) {
	weak, err := NewArgon2idPasswordService(testHashParams())
	require.NoError(t, err)

	strongParams := testHashParams()
	strongParams.Iterations = 2
	strong, err := NewArgon2idPasswordService(strongParams)
	require.NoError(t, err)

	// A hash produced under old parameters must still verify after the
	// service is reconfigured with stronger ones.
	hash, err := weak.HashPassword("migrating password")
	require.NoError(t, err)

	ok, err := strong.CheckPasswordHash("migrating password", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2idPasswordService_MalformedHash(t *testing.T) {
	svc, err := NewArgon2idPasswordService(testHashParams())
	require.NoError(t, err)

	cases := []string{
		"",
		"not a hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}
	for _, encoded := range cases {
		ok, err := svc.CheckPasswordHash("whatever", encoded)
		assert.Error(t, err, "hash %q", encoded)
		assert.False(t, ok)
	}
}

func TestNewArgon2idPasswordService_RejectsIncompleteParams(t *testing.T) {
	params := testHashParams()
	params.Memory = 0
	_, err := NewArgon2idPasswordService(params)
	assert.Error(t, err)
}
