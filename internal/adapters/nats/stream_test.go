package natsadapter

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestTapSubject(t *testing.T) {
	assert.Equal(t, "map.tap.5f1c", TapSubject("5f1c"))
}

func TestTapStreamConfig_CoversEverySession(t *testing.T) {
	cfg := TapStreamConfig()
	assert.Equal(t, TapStream, cfg.Name)
	assert.Equal(t, []string{"map.tap.>"}, cfg.Subjects)
	assert.Equal(t, nats.LimitsPolicy, cfg.Retention)
	assert.Equal(t, 24*time.Hour, cfg.MaxAge)
}
