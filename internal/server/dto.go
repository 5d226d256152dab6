package server

// BroadcastInput carries one chat broadcast. AdminID comes from the
// authenticated session.
type BroadcastInput struct {
	AdminID  int64
	ServerID string
	Message  string
}

// GamemodeInput switches one player's gamemode on a target server.
type GamemodeInput struct {
	AdminID  int64
	ServerID string
	Nick     string
	Mode     string
}
