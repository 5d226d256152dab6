package types

import "time"

// ExecutionConfig describes how a product is delivered on a game server.
// Stored as jsonb on products.
type ExecutionConfig struct {
	ServerID string `json:"server_id"`
	// Commands holds templates with {minecraft_nick}, {quantity}, {item_id}
	// and {duration_days} placeholders. Optional for item/whitelist kinds,
	// which synthesize defaults.
	Commands []string `json:"rcon_commands,omitempty"`
	Delivery string   `json:"delivery,omitempty"`
}

// ItemStack is one entry of a product's items_data payload.
type ItemStack struct {
	MinecraftID string `json:"mc_id"`
	Amount      int    `json:"amount"`
}

// ItemsData is the jsonb list of stacks an item product grants.
type ItemsData []ItemStack

// CommandResult records the outcome of one dispatched server command.
type CommandResult struct {
	Command    string    `json:"command"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	OK         bool      `json:"ok"`
	ExecutedAt time.Time `json:"executed_at"`
}

// CommandResults is the jsonb list persisted on execution records.
type CommandResults []CommandResult

// AllOK reports whether every command in the batch succeeded.
func (r CommandResults) AllOK() bool {
	if len(r) == 0 {
		return false
	}
	for _, res := range r {
		if !res.OK {
			return false
		}
	}
	return true
}
