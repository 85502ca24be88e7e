package database

import (
	"sort"

	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              备份与恢复
// ============================================================================

// Records 返回所有远端实体最近一次 ALIVE 变更（参与者在前）
func (db *DB) Records() []*types.DiscoveryChange {
	db.mu.Lock()
	defer db.mu.Unlock()

	var parts, eps []*types.DiscoveryChange
	for _, pe := range db.participants {
		if !pe.local && pe.alive != nil {
			parts = append(parts, pe.alive.Clone())
		}
	}
	for _, ee := range db.endpoints {
		if !ee.local && ee.alive != nil {
			eps = append(eps, ee.alive.Clone())
		}
	}
	bySubject := func(cs []*types.DiscoveryChange) {
		sort.Slice(cs, func(i, j int) bool {
			return cs[i].Subject.String() < cs[j].Subject.String()
		})
	}
	bySubject(parts)
	bySubject(eps)
	return append(parts, eps...)
}

// Restore 以远端变更的方式重新应用备份记录，返回成功应用的数量
//
// 恢复的参与者租约从当前时刻重新计时。
func (db *DB) Restore(records []*types.DiscoveryChange) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()

	n := 0
	for _, dc := range records {
		if dc.Kind != types.ChangeAlive {
			continue
		}
		applied, err := db.applyLocked(dc.Origin, dc)
		if err != nil {
			logger.Warn("备份记录恢复失败", "subject", dc.Subject.ShortString(), "error", err)
			continue
		}
		if applied {
			n++
		}
	}
	return n
}
