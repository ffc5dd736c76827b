// Defines API request types with validation.

package dto

// validLibraryID checks the caller-chosen library name: lowercase
// alphanumerics, dash and underscore, at most 64 runes. The storage layer
// enforces the same rule; checking here keeps garbage out of logs.
func validLibraryID(libID string) bool {
	if libID == "" || len(libID) > 64 {
		return false
	}
	for _, r := range libID {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func requireLib(libID string) error {
	if libID == "" {
		return MissingField("libID")
	}
	if !validLibraryID(libID) {
		return InvalidReference("invalid library id")
	}
	return nil
}

func requireDoc(docID string) error {
	if docID == "" {
		return MissingField("docID")
	}
	return nil
}

// UploadFileInput is one file of an upload batch. Data is base64 in JSON.
type UploadFileInput struct {
	Name     string `json:"name"`
	Data     []byte `json:"data"`
	Override bool   `json:"override,omitempty"`
}

// UploadRequest is a batch document upload.
type UploadRequest struct {
	LibID    string            `path:"libID" json:"-"`
	FolderID string            `json:"folderId,omitempty"`
	Files    []UploadFileInput `json:"files"`
}

// Validate implements Validatable.
func (r *UploadRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if len(r.Files) == 0 {
		return MissingField("files")
	}
	for _, f := range r.Files {
		if f.Name == "" {
			return MissingField("files[].name")
		}
	}
	return nil
}

// ReplaceRequest swaps one document's content.
type ReplaceRequest struct {
	LibID string `path:"libID" json:"-"`
	DocID string `path:"docID" json:"-"`
	Data  []byte `json:"data"`
}

// Validate implements Validatable.
func (r *ReplaceRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if err := requireDoc(r.DocID); err != nil {
		return err
	}
	// Empty data is a legitimate replacement: an empty file sniffs as text
	// and uploads accept it, so replace does too.
	return nil
}

// UpdateDocumentRequest renames or moves a document. A nil FolderID keeps
// the current folder; an empty string moves to the library root.
type UpdateDocumentRequest struct {
	LibID    string  `path:"libID" json:"-"`
	DocID    string  `path:"docID" json:"-"`
	Name     string  `json:"name,omitempty"`
	FolderID *string `json:"folderId,omitempty"`
}

// Validate implements Validatable.
func (r *UpdateDocumentRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if err := requireDoc(r.DocID); err != nil {
		return err
	}
	if r.Name == "" && r.FolderID == nil {
		return BadRequest("nothing to update")
	}
	return nil
}

// DocumentRequest addresses one document with no body.
type DocumentRequest struct {
	LibID string `path:"libID" json:"-"`
	DocID string `path:"docID" json:"-"`
}

// Validate implements Validatable.
func (r *DocumentRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	return requireDoc(r.DocID)
}

// LibraryRequest addresses one library with no body.
type LibraryRequest struct {
	LibID string `path:"libID" json:"-"`
}

// Validate implements Validatable.
func (r *LibraryRequest) Validate() error {
	return requireLib(r.LibID)
}

// CreateFolderRequest creates a folder, optionally under a parent.
type CreateFolderRequest struct {
	LibID    string `path:"libID" json:"-"`
	ParentID string `json:"parentId,omitempty"`
	Name     string `json:"name"`
}

// Validate implements Validatable.
func (r *CreateFolderRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if r.Name == "" {
		return MissingField("name")
	}
	return nil
}

// UpdateFolderRequest renames or moves a folder. A nil ParentID keeps the
// current parent; an empty string moves to the library root.
type UpdateFolderRequest struct {
	LibID    string  `path:"libID" json:"-"`
	FolderID string  `path:"folderID" json:"-"`
	Name     string  `json:"name,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

// Validate implements Validatable.
func (r *UpdateFolderRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if r.FolderID == "" {
		return MissingField("folderID")
	}
	if r.Name == "" && r.ParentID == nil {
		return BadRequest("nothing to update")
	}
	return nil
}

// FolderRequest addresses one folder with no body.
type FolderRequest struct {
	LibID    string `path:"libID" json:"-"`
	FolderID string `path:"folderID" json:"-"`
}

// Validate implements Validatable.
func (r *FolderRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if r.FolderID == "" {
		return MissingField("folderID")
	}
	return nil
}

// GCRequest triggers a garbage collection run.
type GCRequest struct {
	LibID              string `path:"libID" json:"-"`
	TrashOlderThanDays int    `json:"trashOlderThanDays,omitempty"`
	PurgeLiveOrphans   bool   `json:"purgeLiveOrphans,omitempty"`
	DryRun             bool   `json:"dryRun,omitempty"`
}

// Validate implements Validatable.
func (r *GCRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if r.TrashOlderThanDays < 0 {
		return BadRequest("trashOlderThanDays must not be negative")
	}
	return nil
}

// OrphansRequest surveys unreferenced documents and trash contents.
type OrphansRequest struct {
	LibID    string `path:"libID" json:"-"`
	FolderID string `query:"folderId" json:"-"`
}

// Validate implements Validatable.
func (r *OrphansRequest) Validate() error {
	return requireLib(r.LibID)
}

// AnalyzeRequest asks for on-demand analysis of a batch of documents.
type AnalyzeRequest struct {
	LibID       string   `path:"libID" json:"-"`
	IDs         []string `json:"ids"`
	RequestText string   `json:"requestText,omitempty"`
}

// Validate implements Validatable.
func (r *AnalyzeRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if len(r.IDs) == 0 {
		return MissingField("ids")
	}
	return nil
}

// GraphRequest addresses one graph with no body.
type GraphRequest struct {
	LibID   string `path:"libID" json:"-"`
	GraphID string `path:"graphID" json:"-"`
}

// Validate implements Validatable.
func (r *GraphRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if r.GraphID == "" {
		return MissingField("graphID")
	}
	return nil
}

// SaveGraphRequest stores a graph wholesale. Node attachments are rebuilt
// from the library on the next read, so callers may send them or not.
type SaveGraphRequest struct {
	LibID   string          `path:"libID" json:"-"`
	GraphID string          `path:"graphID" json:"-"`
	Name    string          `json:"name,omitempty"`
	Nodes   []SaveGraphNode `json:"nodes"`
	Extra   map[string]any  `json:"extra,omitempty"`
}

// SaveGraphNode is one node of a stored graph.
type SaveGraphNode struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt,omitempty"`
	Response    string         `json:"response,omitempty"`
	Stale       bool           `json:"stale,omitempty"`
	DocumentIDs []string       `json:"documentIds,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Validate implements Validatable.
func (r *SaveGraphRequest) Validate() error {
	if err := requireLib(r.LibID); err != nil {
		return err
	}
	if r.GraphID == "" {
		return MissingField("graphID")
	}
	for _, n := range r.Nodes {
		if n.ID == "" {
			return MissingField("nodes[].id")
		}
	}
	return nil
}

// HealthRequest is the empty health check request.
type HealthRequest struct{}

// Validate implements Validatable.
func (r *HealthRequest) Validate() error { return nil }
