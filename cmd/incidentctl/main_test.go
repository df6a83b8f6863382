package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrubbe-dev/incident-service/internal/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		tokenUserID, tokenBusinessID = "", ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSLACommandPrintsEffectivePolicy(t *testing.T) {
	t.Setenv("SLA_CRITICAL_ACK_MINUTES", "5")
	t.Setenv("SLA_POLICY_FILE", "")

	out, err := run(t, "sla", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "PRIORITY")
	assert.Contains(t, lines[1], "CRITICAL")
	assert.Contains(t, lines[1], "5m0s")
	assert.Contains(t, lines[4], "LOW")
}

func TestTokenCommandMintsParsableToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "--user", "user-1", "--business", "biz-1", "--log-level", "error")
	require.NoError(t, err)

	token := strings.SplitN(out, "\n", 2)[0]
	claims, err := auth.NewTokenManager("cli-secret", 60).ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "biz-1", claims.BusinessID)
	assert.Contains(t, out, "expires ")
}

func TestTokenCommandRequiresFlags(t *testing.T) {
	_, err := run(t, "token", "--user", "user-1", "--log-level", "error")
	assert.ErrorContains(t, err, "--business")
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	_, err := run(t, "migrate", "--log-level", "error")
	assert.ErrorContains(t, err, "POSTGRES_DSN")
}
