package inbox

import "github.com/agentmail/atm/internal/schema"

// mergeLoopLimit bounds how many times Append/Update will re-check the
// on-disk digest before giving up and committing anyway.
const mergeLoopLimit = 3

// messageIdentity returns the key two messages are compared by: their
// message_id when both sides have one, else the (from, timestamp, text)
// tuple.
func messageIdentity(m schema.InboxMessage) (id string, tuple [3]string) {
	return m.MessageID, [3]string{m.From, m.Timestamp, m.Text}
}

func sameMessage(a, b schema.InboxMessage) bool {
	aID, aTuple := messageIdentity(a)
	bID, bTuple := messageIdentity(b)
	if aID != "" && bID != "" {
		return aID == bID
	}
	return aTuple == bTuple
}

func contains(list []schema.InboxMessage, m schema.InboxMessage) bool {
	for _, candidate := range list {
		if sameMessage(candidate, m) {
			return true
		}
	}
	return false
}

// mergeInto folds every message in diskList that isn't already present
// in *ours ahead of ours' own appended tail (the last tailLen entries),
// preserving diskList's order, and returns how many messages were
// inserted.
func mergeInto(ours *[]schema.InboxMessage, diskList []schema.InboxMessage, tailLen int) int {
	var toInsert []schema.InboxMessage
	for _, m := range diskList {
		if !contains(*ours, m) {
			toInsert = append(toInsert, m)
		}
	}
	if len(toInsert) == 0 {
		return 0
	}
	if tailLen > len(*ours) {
		tailLen = len(*ours)
	}
	cut := len(*ours) - tailLen
	merged := make([]schema.InboxMessage, 0, len(*ours)+len(toInsert))
	merged = append(merged, (*ours)[:cut]...)
	merged = append(merged, toInsert...)
	merged = append(merged, (*ours)[cut:]...)
	*ours = merged
	return len(toInsert)
}
