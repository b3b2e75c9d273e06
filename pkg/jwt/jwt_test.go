package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/mintyspider/attendance-report/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("instructor-1", RoleInstructor)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.InstructorID != "instructor-1" {
		t.Errorf("期望 InstructorID=instructor-1，实际=%s", claims.InstructorID)
	}
	if claims.Role != RoleInstructor {
		t.Errorf("期望 Role=instructor，实际=%s", claims.Role)
	}
	if claims.Issuer != issuer {
		t.Errorf("期望 Issuer=%s，实际=%s", issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 14*time.Minute || ttl > 16*time.Minute {
		t.Errorf("TTL 期望约 15 分钟，实际=%v", ttl)
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	m := newTestManager()

	_, err := m.ParseToken("invalid.token.string")
	if err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{
		JWTSecret:      "different-secret-key",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, _ := m1.GenerateAccessToken("instructor-1", RoleAdmin)
	if _, err := m2.ParseToken(token); err == nil {
		t.Error("不同密钥签名的 token 不应通过验证")
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	m := newTestManager()
	claims := Claims{
		InstructorID: "instructor-1",
		Role:         RoleInstructor,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("签发方不符时期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	// 创建一个 TTL 极短的 manager 来测试过期
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret",
		AccessTokenTTL: 1 * time.Millisecond,
	})

	token, _ := m.GenerateAccessToken("instructor-1", RoleInstructor)
	time.Sleep(1100 * time.Millisecond)

	_, err := m.ParseToken(token)
	if err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleInstructor) || !ValidRole(RoleAdmin) || ValidRole("student") {
		t.Error("ValidRole 判断错误")
	}
}
