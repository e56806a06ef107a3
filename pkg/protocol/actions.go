package protocol

// Action names the kind of message carried by an Envelope.
type Action string

// Inbound actions sent by clients.
const (
	ActionOpenNotebook    Action = "open_notebook"
	ActionCloseNotebook   Action = "close_notebook"
	ActionCreateCell      Action = "create_cell"
	ActionLockCell        Action = "lock_cell"
	ActionUnlockCell      Action = "unlock_cell"
	ActionEditCell        Action = "edit_cell"
	ActionUpdateOutput    Action = "update_output"
	ActionShareNotebook   Action = "share_notebook"
	ActionSendChatMessage Action = "send_chat_message"
)

// Outbound actions emitted by the server.
const (
	ActionNotebookOpened   Action = "notebook_opened"
	ActionNotebookContents Action = "notebook_contents"
	ActionNotebookClosed   Action = "notebook_closed"
	ActionNotebookShared   Action = "notebook_shared"
	ActionNotebookUnshared Action = "notebook_unshared"
	ActionCellCreated      Action = "cell_created"
	ActionCellLocked       Action = "cell_locked"
	ActionCellUnlocked     Action = "cell_unlocked"
	ActionCellEdited       Action = "cell_edited"
	ActionCellDeleted      Action = "cell_deleted"
	ActionOutputUpdated    Action = "output_updated"
	ActionChatMessageSent  Action = "chat_message_sent"
	ActionError            Action = "error"
)

const (
	LanguagePython   = "python"
	LanguageMarkdown = "markdown"
)

const (
	AccessFull     = "Full Access"
	AccessReadOnly = "Read Only"
)
