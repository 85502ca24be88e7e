package badger

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// WriteBatch BadgerDB 批量写入
type WriteBatch struct {
	db     *Engine
	batch  *badger.WriteBatch
	count  int
	closed bool
	err    error
}

var _ engine.Batch = (*WriteBatch)(nil)

// Put 添加写入操作
func (b *WriteBatch) Put(key, value []byte) {
	if b.closed || len(key) == 0 || b.err != nil {
		return
	}
	// Set 的错误延迟到 Write 返回
	b.err = b.batch.Set(key, value)
	b.count++
}

// Delete 添加删除操作
func (b *WriteBatch) Delete(key []byte) {
	if b.closed || len(key) == 0 || b.err != nil {
		return
	}
	b.err = b.batch.Delete(key)
	b.count++
}

// Write 提交
func (b *WriteBatch) Write() error {
	if b.closed {
		return engine.ErrBatchClosed
	}
	if b.db.closed.Load() {
		return engine.ErrClosed
	}
	b.closed = true
	if b.err != nil {
		b.batch.Cancel()
		return convertError(b.err)
	}
	return convertError(b.batch.Flush())
}

// Size 返回操作数量
func (b *WriteBatch) Size() int {
	return b.count
}

// Close 放弃未提交的操作
func (b *WriteBatch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.batch.Cancel()
	return nil
}
