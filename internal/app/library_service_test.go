package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docuchat/internal/model"
)

type fakeFolderStore struct {
	folders map[uint]*model.Folder
	grants  []*model.FolderGrant
	nextID  uint
}

func (f *fakeFolderStore) Create(folder *model.Folder) error {
	f.nextID++
	folder.ID = f.nextID
	if f.folders == nil {
		f.folders = make(map[uint]*model.Folder)
	}
	f.folders[folder.ID] = folder
	return nil
}

func (f *fakeFolderStore) GetByID(id uint) (*model.Folder, error) {
	return f.folders[id], nil
}

func (f *fakeFolderStore) ListByIDs(ids []uint) ([]model.Folder, error) {
	var out []model.Folder
	for _, id := range ids {
		if folder, ok := f.folders[id]; ok {
			out = append(out, *folder)
		}
	}
	return out, nil
}

func (f *fakeFolderStore) CreateGrant(grant *model.FolderGrant) error {
	f.grants = append(f.grants, grant)
	return nil
}

type fakeDocumentStore struct {
	docs    map[uint]*model.Document
	nextID  uint
	deleted []uint
}

func (f *fakeDocumentStore) Create(doc *model.Document) error {
	f.nextID++
	doc.ID = f.nextID
	if f.docs == nil {
		f.docs = make(map[uint]*model.Document)
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentStore) GetByID(id uint) (*model.Document, error) {
	return f.docs[id], nil
}

func (f *fakeDocumentStore) ListByFolderIDs(folderIDs []uint) ([]model.Document, error) {
	allowed := make(map[uint]bool)
	for _, id := range folderIDs {
		allowed[id] = true
	}
	var out []model.Document
	for _, doc := range f.docs {
		if allowed[doc.FolderID] {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) DeleteByID(id uint) error {
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeChunkWriter struct {
	created        []model.Chunk
	deletedForDocs []uint
	nextID         uint
}

func (f *fakeChunkWriter) CreateBatch(chunks []model.Chunk) error {
	for i := range chunks {
		f.nextID++
		chunks[i].ID = f.nextID
	}
	f.created = append(f.created, chunks...)
	return nil
}

func (f *fakeChunkWriter) DeleteByDocumentID(documentID uint) error {
	f.deletedForDocs = append(f.deletedForDocs, documentID)
	return nil
}

type fakeEmbedJobPublisher struct {
	chunkIDs []uint
	err      error
}

func (f *fakeEmbedJobPublisher) PublishChunkEmbed(_ context.Context, chunkID uint) error {
	if f.err != nil {
		return f.err
	}
	f.chunkIDs = append(f.chunkIDs, chunkID)
	return nil
}

type libraryFixture struct {
	service   *LibraryService
	folders   *fakeFolderStore
	docs      *fakeDocumentStore
	chunks    *fakeChunkWriter
	embedJobs *fakeEmbedJobPublisher
}

func newLibraryFixture() *libraryFixture {
	users := &fakeUserStore{users: map[uint]*model.User{
		7:  {ID: 7, OrgID: 1, TeamID: 1, Role: model.RoleMember},
		8:  {ID: 8, OrgID: 1, TeamID: 2, Role: model.RoleMember},
		99: {ID: 99, OrgID: 1, Role: model.RoleAdmin},
	}}
	acl := &fakeFolderACL{
		orgFolders:  map[uint][]uint{1: {1, 2}},
		teamFolders: map[[2]uint][]uint{{1, 1}: {1}, {1, 2}: {2}},
		grants:      map[uint][]uint{},
	}
	folders := &fakeFolderStore{folders: map[uint]*model.Folder{
		1: {ID: 1, OrgID: 1, TeamID: 1, Name: "Team One"},
		2: {ID: 2, OrgID: 1, TeamID: 2, Name: "Team Two"},
	}, nextID: 2}
	docs := &fakeDocumentStore{}
	chunks := &fakeChunkWriter{}
	embedJobs := &fakeEmbedJobPublisher{}

	service := NewLibraryService(users, NewScopeResolver(acl), folders, docs, chunks, embedJobs)
	return &libraryFixture{service: service, folders: folders, docs: docs, chunks: chunks, embedJobs: embedJobs}
}

func TestRegisterDocumentChunksAndEnqueues(t *testing.T) {
	fx := newLibraryFixture()
	content := strings.Repeat("a", 2500)

	result, err := fx.service.RegisterDocument(context.Background(), RegisterDocumentInput{
		UserID:   7,
		FolderID: 1,
		Name:     "Handbook",
		Content:  content,
	})
	require.NoError(t, err)
	require.Equal(t, "Handbook", result.Document.Name)
	require.Equal(t, uint(1), result.Document.FolderID)

	// 2500 runes with 1000-rune windows and 200 overlap gives 4 chunks.
	require.Equal(t, 4, result.ChunkCount)
	require.Len(t, fx.chunks.created, 4)
	for _, chunk := range fx.chunks.created {
		require.Equal(t, result.Document.ID, chunk.DocumentID)
		require.False(t, chunk.HasEmbedding(), "fresh chunks start without embeddings")
	}
	require.Equal(t, []uint{1, 2, 3, 4}, fx.embedJobs.chunkIDs)
}

func TestRegisterDocumentRejectsInaccessibleFolder(t *testing.T) {
	fx := newLibraryFixture()

	_, err := fx.service.RegisterDocument(context.Background(), RegisterDocumentInput{
		UserID:   7,
		FolderID: 2,
		Name:     "Doc",
		Content:  "content",
	})
	require.ErrorIs(t, err, ErrFolderNotFound)
	require.Empty(t, fx.docs.docs)
}

func TestRegisterDocumentSurvivesEnqueueFailure(t *testing.T) {
	fx := newLibraryFixture()
	fx.embedJobs.err = errors.New("broker down")

	result, err := fx.service.RegisterDocument(context.Background(), RegisterDocumentInput{
		UserID:   7,
		FolderID: 1,
		Content:  "small document",
	})
	require.NoError(t, err, "embed enqueue is best-effort")
	require.Equal(t, 1, result.ChunkCount)
}

func TestRegisterDocumentDefaultsName(t *testing.T) {
	fx := newLibraryFixture()

	result, err := fx.service.RegisterDocument(context.Background(), RegisterDocumentInput{
		UserID:   7,
		FolderID: 1,
		Content:  "content",
	})
	require.NoError(t, err)
	require.Equal(t, "Untitled", result.Document.Name)
}

func TestRegisterDocumentEmptyContent(t *testing.T) {
	fx := newLibraryFixture()

	_, err := fx.service.RegisterDocument(context.Background(), RegisterDocumentInput{
		UserID:   7,
		FolderID: 1,
		Content:  "   ",
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListDocumentsScopesRequestedFolders(t *testing.T) {
	fx := newLibraryFixture()
	fx.docs.docs = map[uint]*model.Document{
		1: {ID: 1, FolderID: 1, Name: "Visible"},
		2: {ID: 2, FolderID: 2, Name: "Hidden"},
	}

	docs, err := fx.service.ListDocuments(7, []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "Visible", docs[0].Name)
}

func TestDeleteDocumentCascadesChunks(t *testing.T) {
	fx := newLibraryFixture()
	fx.docs.docs = map[uint]*model.Document{
		5: {ID: 5, FolderID: 1, Name: "Doc"},
	}

	err := fx.service.DeleteDocument(7, 5)
	require.NoError(t, err)
	require.Equal(t, []uint{5}, fx.chunks.deletedForDocs)
	require.Equal(t, []uint{5}, fx.docs.deleted)
}

func TestDeleteDocumentInaccessibleFolder(t *testing.T) {
	fx := newLibraryFixture()
	fx.docs.docs = map[uint]*model.Document{
		5: {ID: 5, FolderID: 2, Name: "Doc"},
	}

	err := fx.service.DeleteDocument(7, 5)
	require.ErrorIs(t, err, ErrFolderNotFound)
	require.Empty(t, fx.chunks.deletedForDocs)
}

func TestCreateFolderInheritsUserOrgAndTeam(t *testing.T) {
	fx := newLibraryFixture()

	folder, err := fx.service.CreateFolder(7, "  Specs  ")
	require.NoError(t, err)
	require.Equal(t, "Specs", folder.Name)
	require.Equal(t, uint(1), folder.OrgID)
	require.Equal(t, uint(1), folder.TeamID)
}

func TestGrantFolderRequiresCallerAccess(t *testing.T) {
	fx := newLibraryFixture()

	err := fx.service.GrantFolder(7, 2, 8)
	require.ErrorIs(t, err, ErrFolderNotFound)
	require.Empty(t, fx.folders.grants)

	err = fx.service.GrantFolder(7, 1, 8)
	require.NoError(t, err)
	require.Len(t, fx.folders.grants, 1)
	require.Equal(t, uint(1), fx.folders.grants[0].FolderID)
	require.Equal(t, uint(8), fx.folders.grants[0].UserID)
}
