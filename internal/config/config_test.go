package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "calendar", cfg.Settlement.BusinessDayRule)
	assert.Equal(t, "Asia/Seoul", cfg.Settlement.TimeZone)
	assert.Equal(t, []string{"00"}, cfg.Settlement.PayableStatuses)
	assert.Equal(t, []string{"자차", "자기부담금", "자기부담"}, cfg.Settlement.SelfInsuredKeywords)
	assert.Equal(t, "취소", cfg.Settlement.StatusLabels["01"])
	assert.Equal(t, 3.28, cfg.Settlement.Rates["대인1지원"])
	assert.Equal(t, 0.0, cfg.Settlement.Rates["자차"])
	assert.Len(t, cfg.Settlement.Rates, 5)
	require.NoError(t, cfg.Settlement.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SETTLEMENT_BUSINESS_DAY_RULE", "platform")
	t.Setenv("SETTLEMENT_RATES", "대물=4.0, 대인2 = 5")
	t.Setenv("SETTLEMENT_PAYABLE_STATUSES", "00, 03,")
	t.Setenv("SETTLEMENT_RUN_TIMEOUT", "30s")
	t.Setenv("REDIS_DB", "2")

	cfg := Load()

	assert.Equal(t, "platform", cfg.Settlement.BusinessDayRule)
	assert.Equal(t, map[string]float64{"대물": 4.0, "대인2": 5}, cfg.Settlement.Rates)
	assert.Equal(t, []string{"00", "03"}, cfg.Settlement.PayableStatuses)
	assert.Equal(t, 30*time.Second, cfg.Settlement.RunTimeout)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SETTLEMENT_RATES", "대물=cheap")
	t.Setenv("SETTLEMENT_LOCK_TTL", "soon")
	t.Setenv("REDIS_DB", "x")

	cfg := Load()

	assert.Equal(t, 3.68, cfg.Settlement.Rates["대물"])
	assert.Equal(t, 5*time.Minute, cfg.Settlement.LockTTL)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestSettlementConfig_Validate(t *testing.T) {
	valid := Load().Settlement

	testCases := []struct {
		name   string
		mutate func(*SettlementConfig)
	}{
		{"rule", func(c *SettlementConfig) { c.BusinessDayRule = "weekly" }},
		{"rounding", func(c *SettlementConfig) { c.Rounding = "up" }},
		{"basis", func(c *SettlementConfig) { c.PremiumBasis = "gross" }},
		{"negative rate", func(c *SettlementConfig) { c.Rates = map[string]float64{"대물": -1} }},
		{"lock ttl", func(c *SettlementConfig) { c.LockTTL = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
