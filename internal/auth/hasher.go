package auth

import "golang.org/x/crypto/bcrypt"

// Hasher はパスワードのソルト付き一方向ハッシュ化と検証を提供します。
type Hasher struct {
	cost int
}

// NewHasher は Hasher を作成します。コストが範囲外の場合は
// bcrypt のデフォルト値を使います。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードをハッシュ化します。失敗は内部エラーとして扱います。
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify は平文とハッシュの一致を検証します。
// 不一致はエラーではなく false という正常な結果です。
func (h *Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
