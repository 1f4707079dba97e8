package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeFrame     = "FRAME"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Every sends one frame per N iterations. Zero keeps the current setting.
	Every int `json:"every,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	TickRateHz         int    `json:"tick_rate_hz"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	Seed               int64  `json:"seed"`
	GenomeAddressSize  int    `json:"genome_address_size"`
	NeighborhoodRadius int    `json:"neighborhood_radius"`
	BitHistorySize     int    `json:"bit_history_size"`
	Iterations         int    `json:"iterations"`
	Behavior           string `json:"behavior"`
}

// Server -> Client. One display frame of the whole grid.
//
// Data is the RLE encoding of palette ids in scan order (x outer, y inner);
// Palette holds 0xRRGGBB colors.
type FrameMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Tick            uint64   `json:"tick"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	Palette         []uint32 `json:"palette"`
	Encoding        string   `json:"encoding"`
	Data            string   `json:"data"`
	Digest          string   `json:"digest,omitempty"`
}
