package imap

import (
	"fmt"
	"sort"
	"sync"

	goimap "github.com/emersion/go-imap"

	"unimail/driver"
	"unimail/models"
	"unimail/utils"
)

// decodeJoin coordinates the fan-out of per-message body decoding with
// the end of the fetch stream. Decoding is slow relative to the wire
// and may still be running when the server has delivered the last
// message, so the overall result is produced only when both the stream
// has ended and every spawned decode has landed.
type decodeJoin struct {
	wg sync.WaitGroup

	mu       sync.Mutex
	emails   []models.Email
	warnings []string
	seen     map[string]bool
	dup      string
}

func newDecodeJoin() *decodeJoin {
	return &decodeJoin{seen: make(map[string]bool)}
}

// spawn registers one message and decodes it concurrently. Results are
// appended in whatever order decoding finishes. A message whose decode
// fails is excluded from the result set and recorded as a warning,
// never silently and never aborting the batch.
func (j *decodeJoin) spawn(id string, decode func() (models.Email, error)) {
	j.wg.Add(1)

	go func() {
		defer j.wg.Done()

		email, err := decode()

		j.mu.Lock()
		defer j.mu.Unlock()

		if j.seen[id] {
			j.dup = id
			return
		}
		j.seen[id] = true

		if err != nil {
			utils.Log.Warn("decode of message %s failed: %v", id, err)
			j.warnings = append(j.warnings, fmt.Sprintf("message %s dropped: %v", id, err))
			return
		}

		j.emails = append(j.emails, email)
	}()
}

// wait blocks until every spawned decode has completed, then accounts
// for the requested identifiers: each must have landed exactly once,
// either as a decoded message or as a recorded decode warning. The
// returned missing list holds identifiers the stream never delivered.
func (j *decodeJoin) wait(requested []string) (emails []models.Email, warnings, missing []string, err error) {
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.dup != "" {
		return nil, nil, nil, driver.ProtocolError("imap.fetch",
			fmt.Sprintf("message %s delivered more than once", j.dup), nil)
	}

	for _, id := range requested {
		if !j.seen[id] {
			missing = append(missing, id)
		}
	}

	return j.emails, j.warnings, missing, nil
}

// fetchByUID issues one fetch command covering the given UID set and
// decodes each message body concurrently. The session stays open until
// both the fetch stream has ended and the last decode has completed;
// only then may the caller close it.
func (s *session) fetchByUID(mailbox string, uids []uint32) (emails []models.Email, warnings, missing []string, err error) {
	if len(uids) == 0 {
		return nil, nil, nil, nil
	}

	if _, err := s.selectMailbox(mailbox, true); err != nil {
		return nil, nil, nil, err
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uids...)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchFlags,
		goimap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	secure := s.creds.UseTLS
	join := newDecodeJoin()
	for msg := range messages {
		msg := msg
		join.spawn(formatUID(mailbox, msg.Uid), func() (models.Email, error) {
			return decodeMessage(msg, section, mailbox, secure)
		})
	}

	// The channel closing marks the end of the stream; the command
	// result arrives on done. Decodes may still be pending, so join
	// before reporting anything.
	streamErr := <-done
	emails, warnings, missing, joinErr := join.wait(requestedIDs(mailbox, uids))

	if streamErr != nil {
		return nil, nil, nil, driver.ProtocolError("imap.fetch", "fetch failed", streamErr)
	}
	if joinErr != nil {
		return nil, nil, nil, joinErr
	}

	sort.Slice(emails, func(i, k int) bool {
		return emails[i].ReceivedOn.Before(emails[k].ReceivedOn)
	})

	return emails, warnings, missing, nil
}

func requestedIDs(mailbox string, uids []uint32) []string {
	ids := make([]string, len(uids))
	for i, uid := range uids {
		ids[i] = formatUID(mailbox, uid)
	}
	return ids
}
