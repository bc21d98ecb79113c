package gmail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func TestParseMessage_Multipart(t *testing.T) {
	raw := `From: =?UTF-8?Q?Caf=C3=A9?= <cafe@example.com>
To: me@example.com
Subject: =?UTF-8?B?T3JkZXIgY29uZmlybWVk?=
Date: Mon, 02 Jan 2006 15:04:05 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/html; charset=utf-8

<p>Your <b>order</b> shipped</p>
--b1--
`
	rec, err := ParseMessage(&gmailapi.Message{Id: "m1", Raw: rawMessage(raw)})
	require.NoError(t, err)

	require.NotNil(t, rec.From)
	assert.Equal(t, "Café <cafe@example.com>", *rec.From)
	require.NotNil(t, rec.Subject)
	assert.Equal(t, "Order confirmed", *rec.Subject)
	require.NotNil(t, rec.Body)
	assert.Equal(t, "Your order shipped", *rec.Body)

	require.NotNil(t, rec.ReceivedAt, "Date header used when internal date missing")
	assert.True(t, rec.ReceivedAt.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))
}

func TestParseMessage_PlainPreferred(t *testing.T) {
	raw := `From: a@example.com
Subject: x
Content-Type: multipart/alternative; boundary="b"

--b
Content-Type: text/plain

plain text
--b
Content-Type: text/html

<p>html text</p>
--b--
`
	rec, err := ParseMessage(&gmailapi.Message{Id: "m2", Raw: rawMessage(raw), InternalDate: 1000})
	require.NoError(t, err)
	require.NotNil(t, rec.Body)
	assert.Equal(t, "plain text", *rec.Body)
	assert.Equal(t, int64(1000), rec.ReceivedAt.UnixMilli())
	assert.Nil(t, rec.To, "missing header stays nil")
}

func TestParseMessage_NoRaw(t *testing.T) {
	rec, err := ParseMessage(&gmailapi.Message{Id: "m3", ThreadId: "t"})
	require.NoError(t, err)
	assert.Nil(t, rec.From)
	assert.Nil(t, rec.Body)
	assert.Nil(t, rec.ReceivedAt)
}

func TestParseMessage_BadBase64(t *testing.T) {
	_, err := ParseMessage(&gmailapi.Message{Id: "m4", Raw: "!!!"})
	assert.Error(t, err)
}

func TestParseMessage_CorruptPartBody(t *testing.T) {
	raw := `From: a@example.com
Subject: x
Content-Type: multipart/alternative; boundary="b"

--b
Content-Type: text/plain
Content-Transfer-Encoding: base64

@@@@ not base64 @@@@
--b--
`
	_, err := ParseMessage(&gmailapi.Message{Id: "m5", Raw: rawMessage(raw)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message m5")
	assert.Contains(t, err.Error(), "read text/plain part")
}
