package imap

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap"

	"unimail/config"
	"unimail/driver"
	"unimail/models"
	"unimail/storage"
	"unimail/utils"
)

const defaultMaxResults = 50

// Driver is the mailbox-protocol implementation of the driver
// contract. Credentials are parsed once from their connection strings
// at construction and cached for the driver's lifetime; a malformed
// string yields an inert driver whose operations fail with a
// configuration error on first use.
type Driver struct {
	imapCreds   config.IMAPCredentials
	smtpCreds   config.SMTPCredentials
	account     string
	insecureTLS bool
	mapper      *FolderMapper
	drafts      *storage.DraftStore
}

var _ driver.Driver = (*Driver)(nil)

// New builds a driver from per-account mail configuration. folders
// overrides the logical-to-mailbox table; drafts may be nil, which
// disables draft dispatch.
func New(cfg config.MailConfig, folders map[string]string, drafts *storage.DraftStore) *Driver {
	account := cfg.Account
	imapCreds := config.ParseIMAPURL(cfg.IMAPURL)
	if account == "" {
		account = imapCreds.Username
	}

	return &Driver{
		imapCreds:   imapCreds,
		smtpCreds:   config.ParseSMTPURL(cfg.SMTPURL),
		account:     account,
		insecureTLS: cfg.AllowInsecureTLS,
		mapper:      NewFolderMapper(folders),
		drafts:      drafts,
	}
}

// Capabilities reports the gaps of this backend: folders stand in for
// labels (listing only), drafts are local, and there is no history
// API.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Labels:       false,
		ServerDrafts: false,
		History:      false,
		Aliases:      true,
	}
}

func (d *Driver) dial(ctx context.Context) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.TransportError("imap.dial", "operation cancelled", err)
	}
	return dial(d.imapCreds, d.insecureTLS)
}

// List returns up to MaxResults thread stubs from the target mailbox,
// most recently indexed (highest UID) first. One message is one thread
// for this backend, and the history marker is the message UID.
func (d *Driver) List(ctx context.Context, opts driver.ListOptions) (*driver.ListResult, error) {
	if opts.MaxResults == 0 {
		opts.MaxResults = defaultMaxResults
	}

	offset, err := decodePageToken(opts.PageToken)
	if err != nil {
		return nil, err
	}

	sess, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	mailbox := d.targetMailbox(opts)
	if _, err := sess.selectMailbox(mailbox, true); err != nil {
		return nil, err
	}

	criteria := goimap.NewSearchCriteria()
	if opts.Query != "" {
		criteria.Text = []string{opts.Query}
	}

	uids, err := sess.uidSearch(criteria)
	if err != nil {
		return nil, err
	}

	page, more := pageUIDs(uids, offset, opts.MaxResults)

	result := &driver.ListResult{Threads: []driver.ThreadStub{}}
	for _, uid := range page {
		result.Threads = append(result.Threads, driver.ThreadStub{
			ID:        formatUID(mailbox, uid),
			HistoryID: strconv.FormatUint(uint64(uid), 10),
		})
	}
	if more {
		result.NextPageToken = encodePageToken(offset + len(page))
	}

	return result, nil
}

// targetMailbox picks the mailbox a listing runs against. Labels are
// mailboxes on this backend, so a label id names a mailbox directly;
// Folder wins when both are given. Extra label ids cannot be
// intersected over the protocol and are ignored.
func (d *Driver) targetMailbox(opts driver.ListOptions) string {
	if opts.Folder == "" && len(opts.LabelIDs) > 0 {
		return opts.LabelIDs[0]
	}
	return d.mapper.Resolve(opts.Folder)
}

// pageUIDs orders matches most recently indexed (highest UID) first
// and cuts one page out of them. The second result reports whether
// matches remain beyond the returned page.
func pageUIDs(uids []uint32, offset int, max uint32) ([]uint32, bool) {
	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, k int) bool { return sorted[i] > sorted[k] })

	if offset >= len(sorted) {
		return nil, false
	}

	end := offset + int(max)
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], end < len(sorted)
}

// FetchFolder resolves up to max full messages from a logical folder,
// newest first. This is the multi-message fetch behind the proxy's
// list endpoint. Messages whose bodies fail to decode are excluded and
// reported through the returned warnings; a message the stream lost
// fails the whole operation instead of silently shrinking the set.
func (d *Driver) FetchFolder(ctx context.Context, folder, query string, max uint32) ([]models.Email, []string, error) {
	if max == 0 {
		max = defaultMaxResults
	}

	sess, err := d.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer sess.close()

	mailbox := d.mapper.Resolve(folder)
	if _, err := sess.selectMailbox(mailbox, true); err != nil {
		return nil, nil, err
	}

	criteria := goimap.NewSearchCriteria()
	if query != "" {
		criteria.Text = []string{query}
	}

	uids, err := sess.uidSearch(criteria)
	if err != nil {
		return nil, nil, err
	}
	page, _ := pageUIDs(uids, 0, max)

	emails, warnings, missing, err := sess.fetchByUID(mailbox, page)
	if err != nil {
		return nil, nil, err
	}
	if len(missing) > 0 {
		return nil, nil, driver.ProtocolError("imap.fetch",
			fmt.Sprintf("fetch stream lost messages: %s", strings.Join(missing, ", ")), nil)
	}

	return emails, warnings, nil
}

// Get resolves one thread fully. Threads are single messages for this
// backend, so the thread identifier is a message identifier.
func (d *Driver) Get(ctx context.Context, id string) (*models.Thread, error) {
	mailbox, uid, err := splitUID(id, d.mapper.Resolve(FolderInbox))
	if err != nil {
		return nil, err
	}

	sess, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	emails, warnings, missing, err := sess.fetchByUID(mailbox, []uint32{uid})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, driver.NotFoundError("imap.get", fmt.Sprintf("message %s not found", id))
	}
	if len(emails) == 0 {
		// The message exists but its body would not parse; a thread
		// silently missing its only message is not a success.
		return nil, driver.DecodeError("imap.get", strings.Join(warnings, "; "), nil)
	}

	return models.NewThread(emails[0].ThreadID, emails), nil
}

// Create dispatches a message through the outbound-mail session, then
// best-effort archives it into the Sent mailbox over a second
// protocol session. Archival failure never fails the send: the
// message was already delivered.
func (d *Driver) Create(ctx context.Context, msg *models.OutgoingMessage) (*driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.TransportError("smtp.send", "operation cancelled", err)
	}

	sender := newSMTPSender(d.smtpCreds, d.insecureTLS, d.account)
	messageID, raw, err := sender.send(msg)
	if err != nil {
		return nil, err
	}

	result := &driver.Result{ID: messageID}
	if err := d.appendToSent(ctx, raw); err != nil {
		utils.Log.Warn("sent-folder append for %s failed: %v", messageID, err)
		result.Warn(fmt.Sprintf("message delivered but Sent-folder append failed: %v", err))
	}

	return result, nil
}

func (d *Driver) appendToSent(ctx context.Context, raw []byte) error {
	sess, err := d.dial(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	return sess.appendSeen(d.mapper.Resolve(FolderSent), raw)
}

// SendDraft dispatches a locally stored draft. When msg is nil the
// stored draft content is sent as-is; otherwise msg supersedes it.
// The draft is removed after a successful send.
func (d *Driver) SendDraft(ctx context.Context, draftID string, msg *models.OutgoingMessage) (*driver.Result, error) {
	if d.drafts == nil {
		return nil, driver.UnsupportedError("imap.sendDraft", "no draft store configured for this backend")
	}

	if msg == nil {
		draft, err := d.drafts.Get(draftID)
		if err != nil {
			return nil, err
		}
		msg = draft.ToOutgoing()
	}

	result, err := d.Create(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := d.drafts.Delete(draftID); err != nil {
		utils.Log.Warn("removing sent draft %s failed: %v", draftID, err)
		result.Warn(fmt.Sprintf("message delivered but draft cleanup failed: %v", err))
	}

	return result, nil
}

// MarkAsRead is an idempotent bulk state change.
func (d *Driver) MarkAsRead(ctx context.Context, ids []string) error {
	return d.setSeen(ctx, ids, goimap.AddFlags)
}

// MarkAsUnread is an idempotent bulk state change.
func (d *Driver) MarkAsUnread(ctx context.Context, ids []string) error {
	return d.setSeen(ctx, ids, goimap.RemoveFlags)
}

func (d *Driver) setSeen(ctx context.Context, ids []string, op goimap.FlagsOp) error {
	byMailbox, err := d.groupByMailbox(ids)
	if err != nil {
		return err
	}
	if len(byMailbox) == 0 {
		return nil
	}

	sess, err := d.dial(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	for mailbox, uids := range byMailbox {
		if _, err := sess.selectMailbox(mailbox, false); err != nil {
			return err
		}
		if err := sess.storeFlags(uids, op, goimap.SeenFlag); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) groupByMailbox(ids []string) (map[string][]uint32, error) {
	inbox := d.mapper.Resolve(FolderInbox)
	byMailbox := make(map[string][]uint32)
	for _, id := range ids {
		mailbox, uid, err := splitUID(id, inbox)
		if err != nil {
			return nil, err
		}
		byMailbox[mailbox] = append(byMailbox[mailbox], uid)
	}
	return byMailbox, nil
}

// ModifyLabels is a documented capability gap: the protocol has no
// native labels, folders are mapped instead of replicated, and the
// mutation is reported as not fully supported rather than failing.
func (d *Driver) ModifyLabels(ctx context.Context, ids []string, changes driver.LabelChanges) (*driver.Result, error) {
	result := &driver.Result{}
	result.Warn("label mutation is not supported by the mailbox protocol backend")
	return result, nil
}

// GetUserLabels synthesizes labels 1:1 from mailbox names. A failed
// listing yields the fixed default set instead of an error.
func (d *Driver) GetUserLabels(ctx context.Context) ([]models.Label, error) {
	sess, err := d.dial(ctx)
	if err != nil {
		utils.Log.Warn("label listing unavailable, using defaults: %v", err)
		return d.mapper.defaultLabels(), nil
	}
	defer sess.close()

	names, err := sess.listMailboxes()
	if err != nil || len(names) == 0 {
		utils.Log.Warn("mailbox listing failed, using default labels: %v", err)
		return d.mapper.defaultLabels(), nil
	}

	labels := make([]models.Label, 0, len(names))
	for _, name := range names {
		labels = append(labels, labelForMailbox(name, nil))
	}
	return labels, nil
}

// GetLabel resolves one mailbox-backed label with its message count.
func (d *Driver) GetLabel(ctx context.Context, id string) (*models.Label, error) {
	sess, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	status, err := sess.status(id)
	if err != nil {
		return nil, driver.NotFoundError("imap.getLabel", fmt.Sprintf("label %q not found", id))
	}

	count := status.Messages
	label := labelForMailbox(id, &count)
	return &label, nil
}

func (d *Driver) CreateLabel(ctx context.Context, label models.Label) (*models.Label, error) {
	return nil, driver.UnsupportedError("imap.createLabel", "labels are read-only on the mailbox protocol backend")
}

func (d *Driver) UpdateLabel(ctx context.Context, id string, label models.Label) (*models.Label, error) {
	return nil, driver.UnsupportedError("imap.updateLabel", "labels are read-only on the mailbox protocol backend")
}

func (d *Driver) DeleteLabel(ctx context.Context, id string) error {
	return driver.UnsupportedError("imap.deleteLabel", "labels are read-only on the mailbox protocol backend")
}

// GetUserInfo is a best-effort static answer derived from the
// configured account; the protocol has no profile API.
func (d *Driver) GetUserInfo(ctx context.Context) (*models.UserInfo, error) {
	if d.account == "" {
		return nil, driver.ConfigError("imap.userInfo", "no account configured", nil)
	}
	return &models.UserInfo{
		Address: d.account,
		Name:    localPart(d.account),
	}, nil
}

// GetEmailAliases reports the single alias this backend knows: the
// configured account itself.
func (d *Driver) GetEmailAliases(ctx context.Context) ([]models.Alias, error) {
	if d.account == "" {
		return nil, driver.ConfigError("imap.aliases", "no account configured", nil)
	}
	return []models.Alias{{Email: d.account, IsPrimary: true}}, nil
}

// RevokeToken has no equivalent on this backend; credentials are a
// plain password, not a revocable token.
func (d *Driver) RevokeToken(ctx context.Context, token string) (*driver.Result, error) {
	result := &driver.Result{}
	result.Warn("token revocation is not supported by the mailbox protocol backend")
	return result, nil
}

// DeleteAllSpam empties the mapped spam mailbox.
func (d *Driver) DeleteAllSpam(ctx context.Context) (*driver.Result, error) {
	sess, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	mailbox := d.mapper.Resolve(FolderSpam)
	status, err := sess.selectMailbox(mailbox, false)
	if err != nil {
		return nil, err
	}

	result := &driver.Result{}
	if status.Messages == 0 {
		return result, nil
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddRange(1, status.Messages)

	item := goimap.FormatFlagsOp(goimap.AddFlags, true)
	if err := sess.client.Store(seqSet, item, []interface{}{goimap.DeletedFlag}, nil); err != nil {
		return nil, driver.ProtocolError("imap.store", "marking spam deleted rejected", err)
	}
	if err := sess.expunge(); err != nil {
		return nil, err
	}

	return result, nil
}

func localPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, driver.ConfigError("imap.list", "malformed page token", err)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, driver.ConfigError("imap.list", "malformed page token", err)
	}
	return offset, nil
}
