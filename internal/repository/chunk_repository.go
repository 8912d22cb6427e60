package repository

import (
	"course_qa_backend/internal/model"

	"gorm.io/gorm"
)

type ChunkRepository struct {
	DB *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{DB: db}
}

// SaveChunks bulk-inserts chunk rows in one transaction. Chunks are
// immutable once written: there is no update path.
func (r *ChunkRepository) SaveChunks(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(chunks, 200).Error
	})
}

func (r *ChunkRepository) FindByDoc(docID string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := r.DB.Where("doc_id = ?", docID).Order("chunk_index asc").Find(&chunks).Error
	return chunks, err
}

// DeleteChunksForDoc removes all chunks of a document and returns their
// IDs so the caller can purge the matching vectors.
func (r *ChunkRepository) DeleteChunksForDoc(docID string) ([]string, error) {
	var chunkIDs []string
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Chunk{}).Where("doc_id = ?", docID).
			Pluck("chunk_id", &chunkIDs).Error; err != nil {
			return err
		}
		return tx.Where("doc_id = ?", docID).Delete(&model.Chunk{}).Error
	})
	if err != nil {
		return nil, err
	}
	return chunkIDs, nil
}
