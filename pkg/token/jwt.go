// Package token 提供了用于签发和验证会话 JSON Web Tokens (JWT) 的功能。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionManager 负责管理会话 JWT 的生成和验证。
type SessionManager struct {
	secretKey []byte        // secretKey 用于签名和验证 token 的密钥
	ttl       time.Duration // ttl 定义了会话 token 的有效期
	ephemeral bool          // ephemeral 表示密钥是进程内随机生成的
}

// SessionClaims 定义了我们想要在 JWT 中存储的会话数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewSessionManager 创建一个新的 SessionManager 实例。
// secret: 用于签名的密钥字符串。
// ttlHours: 会话的有效期（小时）。
// secret 为空时使用随机生成的密钥，进程重启后旧会话全部失效。
func NewSessionManager(secret string, ttlHours int) *SessionManager {
	m := &SessionManager{
		secretKey: []byte(secret),
		ttl:       time.Hour * time.Duration(ttlHours),
	}
	if secret == "" {
		m.secretKey = []byte(GenerateRandomString(32))
		m.ephemeral = true
	}
	return m
}

// Ephemeral 表示签名密钥是否为启动时随机生成的。
func (m *SessionManager) Ephemeral() bool {
	return m.ephemeral
}

// TTL 返回会话有效期。
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// NewSession 生成一个新的会话 ID 并签发对应的 token。
func (m *SessionManager) NewSession() (sessionID, tokenString string, err error) {
	sessionID = uuid.NewString()
	tokenString, err = m.GenerateToken(sessionID)
	return sessionID, tokenString, err
}

// GenerateToken 为给定的会话 ID 生成 token。
func (m *SessionManager) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	// 使用 HS256 签名方法创建新的 token 对象
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 有效，它会返回 SessionClaims 对象。
// 如果 token 无效（例如，签名不匹配或已过期），则返回错误。
func (m *SessionManager) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid && claims.SessionID != "" {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
