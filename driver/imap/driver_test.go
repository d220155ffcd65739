package imap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimail/config"
	"unimail/driver"
)

func TestNewFromMalformedCredentials(t *testing.T) {
	// Construction never crashes on bad connection strings; every
	// session-dependent operation then fails with a config error.
	d := New(config.MailConfig{IMAPURL: "garbage", SMTPURL: "garbage"}, nil, nil)

	_, err := d.List(context.Background(), driver.ListOptions{Folder: "inbox"})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrConfig)

	_, err = d.Get(context.Background(), "INBOX:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrConfig)
}

func TestCapabilities(t *testing.T) {
	d := New(config.MailConfig{
		IMAPURL: "imaps://alice:pw@mail.example.com:993",
		SMTPURL: "smtps://alice:pw@mail.example.com:465",
		Account: "alice@example.com",
	}, nil, nil)

	caps := d.Capabilities()
	assert.False(t, caps.Labels, "folders are mapped, not native labels")
	assert.False(t, caps.ServerDrafts)
	assert.False(t, caps.History)
	assert.True(t, caps.Aliases)
}

func TestAccountFallsBackToIMAPUsername(t *testing.T) {
	d := New(config.MailConfig{
		IMAPURL: "imaps://alice%40example.com:pw@mail.example.com",
	}, nil, nil)

	info, err := d.GetUserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", info.Address)
	assert.Equal(t, "alice", info.Name)
}

func TestGetEmailAliasesStaticAnswer(t *testing.T) {
	d := New(config.MailConfig{
		IMAPURL: "imaps://alice:pw@mail.example.com",
		Account: "alice@example.com",
	}, nil, nil)

	aliases, err := d.GetEmailAliases(context.Background())
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "alice@example.com", aliases[0].Email)
	assert.True(t, aliases[0].IsPrimary)
}

func TestModifyLabelsIsDocumentedGap(t *testing.T) {
	d := New(config.MailConfig{IMAPURL: "imaps://alice:pw@mail.example.com"}, nil, nil)

	result, err := d.ModifyLabels(context.Background(), []string{"INBOX:1"}, driver.LabelChanges{
		AddLabels: []string{"work"},
	})
	require.NoError(t, err, "capability gaps are reported, not thrown")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "not supported")
}

func TestLabelMutationsUnsupported(t *testing.T) {
	d := New(config.MailConfig{IMAPURL: "imaps://alice:pw@mail.example.com"}, nil, nil)
	ctx := context.Background()

	_, err := d.CreateLabel(ctx, labelForMailbox("work", nil))
	assert.ErrorIs(t, err, driver.ErrUnsupported)

	_, err = d.UpdateLabel(ctx, "work", labelForMailbox("work", nil))
	assert.ErrorIs(t, err, driver.ErrUnsupported)

	err = d.DeleteLabel(ctx, "work")
	assert.ErrorIs(t, err, driver.ErrUnsupported)
}

func TestGetUserLabelsFallsBackToDefaults(t *testing.T) {
	// Unreachable backend: labels degrade to the fixed default set
	// instead of raising an error.
	d := New(config.MailConfig{IMAPURL: "garbage"}, nil, nil)

	labels, err := d.GetUserLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 4)

	var names []string
	for _, l := range labels {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"INBOX", "Sent", "Spam", "Trash"}, names)
}

func TestRevokeTokenIsDocumentedGap(t *testing.T) {
	d := New(config.MailConfig{IMAPURL: "imaps://alice:pw@mail.example.com"}, nil, nil)

	result, err := d.RevokeToken(context.Background(), "whatever")
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
}

func TestSendDraftWithoutStoreUnsupported(t *testing.T) {
	d := New(config.MailConfig{IMAPURL: "imaps://alice:pw@mail.example.com"}, nil, nil)

	_, err := d.SendDraft(context.Background(), "some-draft", nil)
	assert.ErrorIs(t, err, driver.ErrUnsupported)
}

func TestPageUIDs(t *testing.T) {
	tests := []struct {
		name   string
		uids   []uint32
		offset int
		max    uint32
		want   []uint32
		more   bool
	}{
		{
			name: "more matches than one page keeps the newest",
			uids: []uint32{3, 9, 1, 7, 5},
			max:  3,
			want: []uint32{9, 7, 5},
			more: true,
		},
		{
			name: "exactly one page",
			uids: []uint32{2, 1, 3},
			max:  3,
			want: []uint32{3, 2, 1},
		},
		{
			name: "fewer matches than the cap",
			uids: []uint32{4, 8},
			max:  10,
			want: []uint32{8, 4},
		},
		{
			name:   "offset into the middle",
			uids:   []uint32{1, 2, 3, 4, 5},
			offset: 2,
			max:    2,
			want:   []uint32{3, 2},
			more:   true,
		},
		{
			name:   "offset past the end",
			uids:   []uint32{1, 2},
			offset: 5,
			max:    2,
		},
		{
			name: "empty mailbox",
			max:  3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, more := pageUIDs(tc.uids, tc.offset, tc.max)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.more, more)
			if tc.max > 0 {
				assert.LessOrEqual(t, len(got), int(tc.max))
			}
		})
	}
}

func TestPageUIDsDoesNotReorderInput(t *testing.T) {
	uids := []uint32{3, 9, 1}
	pageUIDs(uids, 0, 2)
	assert.Equal(t, []uint32{3, 9, 1}, uids)
}

func TestTargetMailbox(t *testing.T) {
	d := New(config.MailConfig{IMAPURL: "imaps://alice:pw@mail.example.com"},
		map[string]string{"spam": "Junk"}, nil)

	// Folder names go through the logical table.
	assert.Equal(t, "Junk", d.targetMailbox(driver.ListOptions{Folder: "spam"}))

	// Label ids are mailbox names on this backend and are used as-is.
	assert.Equal(t, "Junk", d.targetMailbox(driver.ListOptions{LabelIDs: []string{"Junk"}}))
	assert.Equal(t, "Archive/2024", d.targetMailbox(driver.ListOptions{LabelIDs: []string{"Archive/2024"}}))

	// Folder wins over labels; neither falls back to the primary mailbox.
	assert.Equal(t, "Sent", d.targetMailbox(driver.ListOptions{Folder: "sent", LabelIDs: []string{"Junk"}}))
	assert.Equal(t, "INBOX", d.targetMailbox(driver.ListOptions{}))
}

func TestPageTokenRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 50, 12345} {
		token := encodePageToken(offset)
		got, err := decodePageToken(token)
		require.NoError(t, err)
		assert.Equal(t, offset, got)
	}

	got, err := decodePageToken("")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = decodePageToken("!!!not base64!!!")
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrConfig)
}

func TestSetSeenWithNoIDsIsNoSession(t *testing.T) {
	// No ids means nothing to do; no connection is attempted even
	// with inert credentials.
	d := New(config.MailConfig{IMAPURL: "garbage"}, nil, nil)

	require.NoError(t, d.MarkAsRead(context.Background(), nil))
	require.NoError(t, d.MarkAsUnread(context.Background(), nil))
}
