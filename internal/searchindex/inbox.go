package searchindex

import (
	"encoding/json"
	"os"

	"github.com/agentmail/atm/internal/schema"
)

// readInbox decodes one teams_root/<team>/inboxes/<agent>.json file. A
// missing file contributes no messages rather than failing the rebuild,
// since another rebuilder or the inbox engine's retention pass may
// delete an inbox file between the directory listing and this read.
func readInbox(path string) ([]schema.InboxMessage, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var messages []schema.InboxMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
