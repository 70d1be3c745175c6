package rawmail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const replyMessage = "From: Client <client@corp.com>\r\n" +
	"To: Me <me@inbox.dev>\r\n" +
	"Cc: team@corp.com\r\n" +
	"Subject: Re: contract\r\n" +
	"Date: Mon, 10 Mar 2025 09:00:00 +0000\r\n" +
	"Message-ID: <m2@corp.com>\r\n" +
	"In-Reply-To: <m1@inbox.dev>\r\n" +
	"References: <m0@inbox.dev> <m1@inbox.dev>\r\n" +
	"Importance: High\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Looks good, signing today.\r\n"

func TestParse(t *testing.T) {
	e, err := Parse(strings.NewReader(replyMessage), "me@inbox.dev")
	require.NoError(t, err)

	assert.Equal(t, "m2@corp.com", e.ID)
	assert.Equal(t, "client@corp.com", e.Sender)
	assert.Equal(t, "Re: contract", e.Subject)
	assert.Equal(t, "Looks good, signing today.", e.Content)

	require.NotNil(t, e.Metadata)
	m := e.Metadata
	assert.Equal(t, []string{"me@inbox.dev"}, m.ToRecipients)
	assert.Equal(t, []string{"team@corp.com"}, m.CCRecipients)
	assert.True(t, m.IsReply)
	assert.Equal(t, "<m1@inbox.dev>", m.InReplyTo)
	assert.Equal(t, "<m0@inbox.dev>", m.ConversationID)
	assert.Equal(t, "high", m.Importance)
	assert.True(t, m.SentToMe)
	assert.False(t, m.IsCC)
	assert.False(t, m.SentByMe)
	require.NotNil(t, m.SentDateTime)
	assert.Equal(t, 2025, m.SentDateTime.Year())
}

func TestParse_CCOnlyAndPriority(t *testing.T) {
	msg := "From: boss@corp.com\r\n" +
		"To: all@corp.com\r\n" +
		"Cc: me@inbox.dev\r\n" +
		"Subject: Fwd: numbers\r\n" +
		"X-Priority: 1 (Highest)\r\n" +
		"\r\n" +
		"see below\r\n"

	e, err := Parse(strings.NewReader(msg), "Me@Inbox.dev")
	require.NoError(t, err)
	assert.True(t, e.Metadata.SentToMe)
	assert.True(t, e.Metadata.IsCC)
	assert.True(t, e.Metadata.IsForward)
	assert.Equal(t, "high", e.Metadata.Importance)
	assert.Nil(t, e.Metadata.SentDateTime)
}

func TestParse_NoOwner(t *testing.T) {
	e, err := Parse(strings.NewReader(replyMessage), "")
	require.NoError(t, err)
	assert.False(t, e.Metadata.SentToMe)
	assert.False(t, e.Metadata.SentByMe)
}
