package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/statement"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

type fakeRecorder struct {
	known    map[string]bool
	recorded map[string]bool
	staleFor map[string]int
	calls    int
}

func (f *fakeRecorder) Record(ctx context.Context, studentID string, req service.RecordPaymentRequest) (*service.PaymentResult, error) {
	f.calls++
	if !f.known[studentID] {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if f.staleFor[req.Reference] > 0 {
		f.staleFor[req.Reference]--
		return nil, appErrors.Clone(appErrors.ErrConflict, "document changed; retry")
	}
	if f.recorded[req.Reference] {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePayment, "payment already recorded")
	}
	if req.Method != models.PaymentMethodBank {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unexpected method")
	}
	f.recorded[req.Reference] = true
	return &service.PaymentResult{}, nil
}

func TestApplyCredits(t *testing.T) {
	recorder := &fakeRecorder{
		known:    map[string]bool{"s1": true, "s2": true},
		recorded: map[string]bool{"FIT-OLD": true},
		staleFor: map[string]int{"FIT-RACE": 1},
	}
	credits := []statement.Credit{
		{FITID: "FIT-1", StudentID: "s1", Amount: 100},
		{FITID: "FIT-OLD", StudentID: "s1", Amount: 100},
		{FITID: "FIT-RACE", StudentID: "s2", Amount: 50},
		{FITID: "FIT-2", StudentID: "", Amount: 10},
		{FITID: "FIT-3", StudentID: "ghost", Amount: 10},
	}

	steps := 0
	report := applyCredits(context.Background(), recorder, credits, zap.NewNop(), func() { steps++ })

	assert.Equal(t, importReport{Applied: 2, Duplicate: 1, Unmatched: 2}, report)
	assert.Equal(t, len(credits), steps)
	assert.True(t, recorder.recorded["FIT-RACE"], "lost version race is retried")
}

func TestApplyCreditsRepeatedStaleWriteFails(t *testing.T) {
	recorder := &fakeRecorder{
		known:    map[string]bool{"s1": true},
		recorded: map[string]bool{},
		staleFor: map[string]int{"FIT-RACE": 2},
	}
	credits := []statement.Credit{{FITID: "FIT-RACE", StudentID: "s1", Amount: 50}}

	report := applyCredits(context.Background(), recorder, credits, zap.NewNop(), func() {})

	assert.Equal(t, importReport{Failed: 1}, report)
	assert.False(t, recorder.recorded["FIT-RACE"])
}

func TestApplyCreditsReferencesIncludeAccount(t *testing.T) {
	recorder := &fakeRecorder{known: map[string]bool{"s1": true, "s2": true}, recorded: map[string]bool{}}
	credits := []statement.Credit{
		{FITID: "0001", Account: "111", StudentID: "s1", Amount: 100},
		{FITID: "0001", Account: "222", StudentID: "s2", Amount: 200},
	}

	report := applyCredits(context.Background(), recorder, credits, zap.NewNop(), func() {})

	assert.Equal(t, importReport{Applied: 2}, report)
	assert.True(t, recorder.recorded["111/0001"])
	assert.True(t, recorder.recorded["222/0001"])
}

func TestReadCreditsCountsUnreadableStatements(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.ofx")
	require.NoError(t, os.WriteFile(bad, []byte("<OFX>truncated"), 0o600))
	parser, err := statement.NewParser("")
	require.NoError(t, err)

	credits, unreadable := readCredits(parser, []string{bad, filepath.Join(dir, "gone.ofx")}, zap.NewNop())

	assert.Empty(t, credits)
	assert.Equal(t, 2, unreadable)
}

func TestImportOFXFailsOnUnreadableStatement(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	bad := filepath.Join(t.TempDir(), "bad.ofx")
	require.NoError(t, os.WriteFile(bad, []byte("not a statement"), 0o600))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import-ofx", "--dry-run", bad})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 statements could not be read")
}

func TestApplyCreditsStopsOnCancel(t *testing.T) {
	recorder := &fakeRecorder{known: map[string]bool{"s1": true}, recorded: map[string]bool{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := applyCredits(ctx, recorder, []statement.Credit{{FITID: "F", StudentID: "s1", Amount: 1}}, zap.NewNop(), func() {})
	assert.Equal(t, importReport{}, report)
	assert.Zero(t, recorder.calls)
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ofx", "b.ofx", "c.qfx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	files, err := expandFiles([]string{filepath.Join(dir, "*.ofx"), filepath.Join(dir, "c.qfx")})
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = expandFiles([]string{filepath.Join(dir, "missing.ofx")})
	assert.Error(t, err)
}

func TestPrintCredits(t *testing.T) {
	var buf bytes.Buffer
	printCredits(&buf, []statement.Credit{{FITID: "FIT-1", Amount: 12.5, StudentID: "s1", Memo: "student s1"}, {FITID: "FIT-2", Amount: 3}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "s1")
	assert.Contains(t, lines[0], "12.50")
	assert.Contains(t, lines[1], " - ")
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("JWT_ISSUER", "ismis-test")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"token", "--sub", "s1", "--role", "student", "--ttl", "5m"})
	require.NoError(t, root.Execute())

	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "cli-test-secret", Issuer: "ismis-test"})
	claims, err := auth.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Contains(t, errOut.String(), "expires")
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--sub", "s1", "--role", "JANITOR"})
	assert.Error(t, root.Execute())
}
