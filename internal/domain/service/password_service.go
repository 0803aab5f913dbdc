package service

// PasswordService hashes and verifies credential passwords. Verification must
// be constant-time; implementations rely on the hashing library's own compare.
type PasswordService interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, encodedHash string) (bool, error)
}
