package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "teambot/internal/platform/errors"
)

func TestVerifyTrackerSignature(t *testing.T) {
	secret := []byte("s3cr3t")
	body := []byte(`{"action":"edited"}`)
	good := "sha1=ca8a6cfc983b81d25464859288c01c2d478d9ef2"

	assert.NoError(t, VerifyTrackerSignature(secret, body, good))

	err := VerifyTrackerSignature(secret, body, "sha1=deadbeef")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnauthorized))

	err = VerifyTrackerSignature(secret, body, "")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnauthorized))

	err = VerifyTrackerSignature([]byte("wrong"), body, good)
	require.Error(t, err)
}

func TestVerifyChatSignature(t *testing.T) {
	secret := []byte("chatsecret")
	body := []byte("command=%2Fwprocket-ips&user_id=U1")
	ts := "1690000000"
	good := "v0=4022ecd050c57c4bb075e674853de6435f1767951491206fb0654cccc7ecf699"
	now := time.Unix(1690000060, 0)

	assert.NoError(t, VerifyChatSignature(secret, ts, body, good, now))

	err := VerifyChatSignature(secret, ts, body, "v0=deadbeef", now)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnauthorized))

	err = VerifyChatSignature(secret, ts, body, good, time.Unix(1690000000+400, 0))
	require.Error(t, err, "stale timestamps are replays")

	err = VerifyChatSignature(secret, ts, body, good, time.Unix(1690000000-400, 0))
	require.Error(t, err, "future timestamps are rejected too")

	err = VerifyChatSignature(secret, "not-a-number", body, good, now)
	require.Error(t, err)

	err = VerifyChatSignature(secret, "", body, "", now)
	require.Error(t, err)
}
