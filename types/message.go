package types

// Operation is one list command carried in an AMQP message body.
type Operation struct {
	ID       string `json:"id,omitempty"`
	List     string `json:"list"`
	Kind     string `json:"kind,omitempty"`
	Action   string `json:"action"`
	Value    string `json:"value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// Result answers an Operation. Error carries the failure text; ErrorKind is
// one of the ErrorKind* constants so consumers can branch without parsing.
type Result struct {
	ID        string   `json:"id,omitempty"`
	List      string   `json:"list,omitempty"`
	Action    string   `json:"action"`
	Ok        bool     `json:"ok"`
	Value     string   `json:"value,omitempty"`
	Values    []string `json:"values,omitempty"`
	Length    int      `json:"length"`
	Error     string   `json:"error,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

const (
	InsertA   = "Insert"
	RemoveA   = "Remove"
	SearchA   = "Search"
	UpdateA   = "Update"
	PopA      = "Pop"
	GetA      = "Get"
	LenA      = "Len"
	PrintA    = "Print"
	ClearA    = "Clear"
	DropA     = "Drop"
	SnapshotA = "Snapshot"
	ListsA    = "Lists"
)

const (
	ErrorKindEmptyList     = "EmptyList"
	ErrorKindValueNotFound = "ValueNotFound"
	ErrorKindIndex         = "IndexOutOfBounds"
	ErrorKindNoList        = "NoSuchList"
	ErrorKindBadRequest    = "BadRequest"
	ErrorKindInternal      = "Internal"
)
