package secret

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

// Credentials 解封后的明文凭据,只在登录动作的栈上短暂存在,禁止落盘/打日志
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Unsealer interface {
	Unseal(ciphertext string) (*Credentials, error)
}

// chachaUnsealer 密文格式: base64(nonce || aead密文),载荷为凭据JSON
type chachaUnsealer struct {
	key []byte
}

func InitUnsealer(cfg *config.Config) (Unsealer, error) {
	key, err := hex.DecodeString(cfg.Secret.KeyHex)
	if err != nil {
		return nil, faults.Mark(faults.Auth, err, "解析密钥失败")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, faults.Newf(faults.Auth, "密钥长度必须为%d字节", chacha20poly1305.KeySize)
	}
	return &chachaUnsealer{key: key}, nil
}

func (cu *chachaUnsealer) Unseal(ciphertext string) (*Credentials, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, faults.Mark(faults.Auth, err, "凭据密文不是合法base64")
	}
	aead, err := chacha20poly1305.New(cu.key)
	if err != nil {
		return nil, faults.Mark(faults.Auth, err, "初始化AEAD失败")
	}
	if len(raw) < aead.NonceSize() {
		return nil, faults.New(faults.Auth, "凭据密文过短")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, faults.Mark(faults.Auth, err, "凭据解封失败")
	}
	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, faults.Mark(faults.Auth, err, "凭据载荷解析失败")
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, faults.New(faults.Auth, "凭据不完整")
	}
	return &creds, nil
}
