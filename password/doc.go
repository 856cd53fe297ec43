// Package password hashes credentials with argon2id and verifies them.
//
// New hashes use the PHC string form
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// with unpadded base64 fields. [Hasher] additionally accepts bcrypt hashes
// ($2a$, $2b$, $2y$) left behind by older deployments and reports them, along
// with argon2id hashes weaker than the current [Config], through
// [Hasher.NeedsUpgrade] so they can be replaced after a successful login.
//
// Length and confirmation policy belong to the caller. This package never
// logs or stores plaintext and imports no other goAccount package.
package password
