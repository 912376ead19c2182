package app

import (
	"context"
	"log"
	"strings"

	"docuchat/internal/model"
	"docuchat/internal/pkg/textsplit"
)

type FolderStore interface {
	Create(folder *model.Folder) error
	GetByID(id uint) (*model.Folder, error)
	ListByIDs(ids []uint) ([]model.Folder, error)
	CreateGrant(grant *model.FolderGrant) error
}

type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id uint) (*model.Document, error)
	ListByFolderIDs(folderIDs []uint) ([]model.Document, error)
	DeleteByID(id uint) error
}

type ChunkWriter interface {
	CreateBatch(chunks []model.Chunk) error
	DeleteByDocumentID(documentID uint) error
}

// EmbedJobPublisher enqueues chunks for the background embed worker.
type EmbedJobPublisher interface {
	PublishChunkEmbed(ctx context.Context, chunkID uint) error
}

// LibraryService manages folders and document registration. Documents
// are chunked synchronously; embeddings are populated asynchronously by
// the embed worker, so fresh chunks start vector-ineligible.
type LibraryService struct {
	users     UserStore
	scope     *ScopeResolver
	folders   FolderStore
	docs      DocumentStore
	chunks    ChunkWriter
	embedJobs EmbedJobPublisher
}

func NewLibraryService(
	users UserStore,
	scope *ScopeResolver,
	folders FolderStore,
	docs DocumentStore,
	chunks ChunkWriter,
	embedJobs EmbedJobPublisher,
) *LibraryService {
	return &LibraryService{
		users:     users,
		scope:     scope,
		folders:   folders,
		docs:      docs,
		chunks:    chunks,
		embedJobs: embedJobs,
	}
}

func (s *LibraryService) CreateFolder(userID uint, name string) (*model.Folder, error) {
	user, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	folder := &model.Folder{
		OrgID:  user.OrgID,
		TeamID: user.TeamID,
		Name:   name,
	}
	if err := s.folders.Create(folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *LibraryService) ListFolders(userID uint) ([]model.Folder, error) {
	user, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	ids, err := s.scope.AuthorizedFolderIDs(user)
	if err != nil {
		return nil, err
	}
	return s.folders.ListByIDs(ids)
}

// GrantFolder shares a folder with another user. The caller must be
// able to see the folder themselves.
func (s *LibraryService) GrantFolder(userID, folderID, granteeID uint) error {
	if granteeID == 0 || folderID == 0 {
		return ErrInvalidInput
	}
	if err := s.requireFolderAccess(userID, folderID); err != nil {
		return err
	}
	grantee, err := s.users.GetByID(granteeID)
	if err != nil {
		return err
	}
	if grantee == nil {
		return ErrInvalidInput
	}
	return s.folders.CreateGrant(&model.FolderGrant{FolderID: folderID, UserID: granteeID})
}

type RegisterDocumentInput struct {
	UserID   uint
	FolderID uint
	Name     string
	Content  string
}

type RegisterDocumentResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
}

// RegisterDocument stores a document and its chunks, then enqueues one
// embed job per chunk. Enqueue failures are logged only; the chunk just
// stays out of vector search until a later pass picks it up.
func (s *LibraryService) RegisterDocument(ctx context.Context, input RegisterDocumentInput) (*RegisterDocumentResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Untitled"
	}
	if err := s.requireFolderAccess(input.UserID, input.FolderID); err != nil {
		return nil, err
	}

	doc := &model.Document{
		FolderID:      input.FolderID,
		Name:          name,
		ExtractedText: content,
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}

	windows := textsplit.Windows(content, textsplit.DefaultWindowSize, textsplit.DefaultOverlap)
	chunks := make([]model.Chunk, len(windows))
	for i := range windows {
		chunks[i] = model.Chunk{
			DocumentID: doc.ID,
			Content:    windows[i],
		}
	}
	if err := s.chunks.CreateBatch(chunks); err != nil {
		return nil, err
	}

	for i := range chunks {
		if err := s.embedJobs.PublishChunkEmbed(ctx, chunks[i].ID); err != nil {
			log.Printf("enqueue embed job for chunk %d failed: %v", chunks[i].ID, err)
		}
	}

	return &RegisterDocumentResult{
		Document:   *doc,
		ChunkCount: len(chunks),
	}, nil
}

func (s *LibraryService) ListDocuments(userID uint, folderIDs []uint) ([]model.Document, error) {
	user, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	scoped, err := s.scope.Resolve(user, folderIDs)
	if err != nil {
		return nil, err
	}
	return s.docs.ListByFolderIDs(scoped)
}

// DeleteDocument removes a document and cascades to its chunks.
func (s *LibraryService) DeleteDocument(userID, documentID uint) error {
	if documentID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.requireFolderAccess(userID, doc.FolderID); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDocumentID(doc.ID); err != nil {
		return err
	}
	return s.docs.DeleteByID(doc.ID)
}

func (s *LibraryService) requireUser(userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *LibraryService) requireFolderAccess(userID, folderID uint) error {
	user, err := s.requireUser(userID)
	if err != nil {
		return err
	}
	scoped, err := s.scope.Resolve(user, []uint{folderID})
	if err != nil {
		return err
	}
	if len(scoped) == 0 {
		return ErrFolderNotFound
	}
	return nil
}
