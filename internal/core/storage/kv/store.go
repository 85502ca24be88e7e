// Package kv 提供带前缀隔离的 KV 存储
//
// Store 为所有键自动添加前缀，使不同组件共享同一引擎而互不干扰。
// 发现数据库备份使用的前缀：
//   - b/p/ - 参与者记录
//   - b/e/ - 端点记录
package kv

import (
	"bytes"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// Store 带前缀隔离的 KV 存储
type Store struct {
	engine engine.InternalEngine
	prefix []byte
}

// New 创建 Store
func New(eng engine.InternalEngine, prefix []byte) *Store {
	return &Store{engine: eng, prefix: bytes.Clone(prefix)}
}

// Prefix 返回前缀
func (s *Store) Prefix() []byte {
	return s.prefix
}

func (s *Store) key(k []byte) []byte {
	out := make([]byte, len(s.prefix)+len(k))
	copy(out, s.prefix)
	copy(out[len(s.prefix):], k)
	return out
}

// Get 获取值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.key(key))
}

// Put 写入
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.key(key), value)
}

// Delete 删除
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.key(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.key(key))
}

// Iterate 遍历前缀下的键值对，fn 收到的键已去掉前缀
func (s *Store) Iterate(fn func(key, value []byte) error) error {
	return s.engine.Iterate(s.prefix, func(k, v []byte) error {
		return fn(k[len(s.prefix):], v)
	})
}

// Keys 返回前缀下所有键（已去掉前缀）
func (s *Store) Keys() ([][]byte, error) {
	var keys [][]byte
	err := s.Iterate(func(k, _ []byte) error {
		keys = append(keys, bytes.Clone(k))
		return nil
	})
	return keys, err
}

// Replace 以 items 原子替换前缀下的全部内容
func (s *Store) Replace(items map[string][]byte) error {
	keys, err := s.Keys()
	if err != nil {
		return err
	}

	b := s.engine.NewBatch()
	for _, k := range keys {
		if _, keep := items[string(k)]; !keep {
			b.Delete(s.key(k))
		}
	}
	for k, v := range items {
		b.Put(s.key([]byte(k)), v)
	}
	if b.Size() == 0 {
		return b.Close()
	}
	return b.Write()
}

// Clear 删除前缀下的全部内容
func (s *Store) Clear() error {
	return s.Replace(nil)
}
