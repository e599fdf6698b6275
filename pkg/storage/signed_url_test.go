package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	issued := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	signer.now = fixedClock(issued)

	token, expiresAt, err := signer.Sign(DownloadTicket{JobID: "job-1", Path: "job-1/D21CQCN01_Scores.xlsx", Format: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour), expiresAt)

	ticket, err := signer.Verify(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", ticket.JobID)
	assert.Equal(t, "job-1/D21CQCN01_Scores.xlsx", ticket.Path)
	assert.Equal(t, "xlsx", ticket.Format)
	assert.True(t, expiresAt.Equal(ticket.ExpiresAt))
}

func TestDownloadSignerExpiry(t *testing.T) {
	signer := NewDownloadSigner("secret", 24*time.Hour)
	issued := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	signer.now = fixedClock(issued)
	token, _, err := signer.Sign(DownloadTicket{JobID: "job-1", Path: "job-1/a.csv", Format: "csv"})
	require.NoError(t, err)

	signer.now = fixedClock(issued.Add(25 * time.Hour))
	_, err = signer.Verify(token, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	ticket, err := signer.Verify(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1/a.csv", ticket.Path)
}

func TestDownloadSignerRejectsForeignTokens(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, _, err := signer.Sign(DownloadTicket{JobID: "job-1", Path: "job-1/a.pdf", Format: "pdf"})
	require.NoError(t, err)

	_, err = NewDownloadSigner("other", time.Hour).Verify(token, false)
	assert.Error(t, err)

	_, err = NewDownloadSigner("other", time.Hour).Verify(token, true)
	assert.Error(t, err, "signature is checked even when expiry is not")

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	_, err = signer.Verify(parts[0]+"."+parts[1]+".AAAA", false)
	assert.Error(t, err)

	_, err = signer.Verify("garbage", false)
	assert.Error(t, err)
}

func TestDownloadSignerRequiresJobAndSecret(t *testing.T) {
	_, _, err := NewDownloadSigner("secret", time.Hour).Sign(DownloadTicket{Path: "a.csv"})
	assert.Error(t, err)

	_, _, err = NewDownloadSigner("", time.Hour).Sign(DownloadTicket{JobID: "job-1", Path: "a.csv"})
	assert.Error(t, err)
}
