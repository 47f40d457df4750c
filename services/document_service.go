package services

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/store"
	"github.com/aiqalab/redteam-console/utils"
)

// ErrDocumentNotFound is returned for operations on an unknown document ID.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentService manages the knowledge documents shown alongside the
// dashboard. Contents are stored as text; binary uploads are rejected at
// the handler.
type DocumentService struct {
	store  *store.Store
	logger *utils.Logger
}

// NewDocumentService creates the document service.
func NewDocumentService(st *store.Store, logger *utils.Logger) *DocumentService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &DocumentService{store: st, logger: logger.WithSource("document_service")}
}

// List returns all documents, newest first.
func (s *DocumentService) List() ([]models.KnowledgeDocument, error) {
	return s.store.ListDocuments()
}

// Create stores a new document, deriving the file type from the filename
// extension when not supplied.
func (s *DocumentService) Create(req *models.DocumentRequest) (*models.KnowledgeDocument, error) {
	fileType := req.FileType
	if fileType == "" {
		fileType = strings.TrimPrefix(filepath.Ext(req.Filename), ".")
		if fileType == "" {
			fileType = "txt"
		}
	}

	doc := &models.KnowledgeDocument{
		Filename: req.Filename,
		FileType: fileType,
		Content:  req.Content,
	}
	if err := s.store.CreateDocument(doc); err != nil {
		return nil, err
	}
	s.logger.Info("Document stored", map[string]interface{}{"filename": doc.Filename})
	return doc, nil
}

// Delete removes a document.
func (s *DocumentService) Delete(id string) error {
	if err := s.store.DeleteDocument(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return err
	}
	return nil
}
