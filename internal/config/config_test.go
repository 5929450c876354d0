package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseTelegramUsers(t *testing.T) {
	id := uuid.New()
	users, err := ParseTelegramUsers(" 42:" + id.String() + " ,")
	if err != nil {
		t.Fatal(err)
	}
	if users[42] != id || len(users) != 1 {
		t.Errorf("users = %v", users)
	}

	for _, bad := range []string{"42", "x:" + id.String(), "42:nope"} {
		if _, err := ParseTelegramUsers(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestMustLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CLASSIFIER_BATCH_SIZE", "-3")
	t.Setenv("DEFAULT_CATEGORY", "")

	cfg := MustLoad()
	if cfg.ServerPort != ":9090" || cfg.JWTExpiresIn != 2*time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("level = %v", cfg.LogLevel)
	}
	if cfg.ClassifierBatchSize != 25 || cfg.DefaultCategory != "Outros" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
