package database

import (
	"errors"

	"github.com/dep2p/go-dds/internal/core/codec"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              远端变更
// ============================================================================

// ApplyChange 应用从 from 收到的发现变更
//
// 收到某实体不早于当前跟踪序列号且可解析的变更，同时视为 from 对该实体的确认。
// 重复宣告、过期变更、未知 GUID 的销毁与孤儿端点只记录日志，不返回错误；
// 只有无法解析的负载返回 types.ErrMalformedPayload。
func (db *DB) ApplyChange(from types.GUIDPrefix, dc *types.DiscoveryChange) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.reportLocked()

	var (
		ackSeq uint64
		acks   bool
	)
	if st, ok := db.tracker.Get(dc.Subject); ok && dc.Sequence >= st.Sequence {
		ackSeq, acks = st.Sequence, true
	}

	applied, err := db.applyLocked(from, dc)
	if acks && !errors.Is(err, types.ErrMalformedPayload) {
		db.tracker.Ack(dc.Subject, ackSeq, from)
	}
	switch {
	case err == nil:
		return applied, nil
	case errors.Is(err, types.ErrMalformedPayload):
		return false, err
	case errors.Is(err, types.ErrUnknownGUID):
		logger.Debug("忽略未知 GUID 的销毁", "change", dc, "from", from.ShortString())
	default:
		logger.Debug("忽略发现变更", "change", dc, "from", from.ShortString(), "reason", err)
	}
	return false, nil
}

func (db *DB) applyLocked(from types.GUIDPrefix, dc *types.DiscoveryChange) (bool, error) {
	if dc.Subject.Prefix == db.local {
		// 服务器回送的本地实体
		return false, nil
	}

	switch {
	case dc.IsParticipant() && dc.Kind == types.ChangeAlive:
		p, err := codec.DecodeProxy(dc.Subject, dc.Payload)
		if err != nil {
			return false, err
		}
		return db.putRemoteParticipantLocked(from, p.(*types.ParticipantProxy), dc)

	case dc.IsParticipant():
		pe, ok := db.participants[dc.Subject.Prefix]
		if !ok {
			return false, types.ErrUnknownGUID
		}
		if dc.Sequence < pe.seq {
			return false, types.ErrStaleChange
		}
		return db.removeParticipantLocked(dc.Subject.Prefix, types.RemovedDisposed, dc), nil

	case dc.Kind == types.ChangeAlive:
		e, err := codec.DecodeProxy(dc.Subject, dc.Payload)
		if err != nil {
			return false, err
		}
		return db.putRemoteEndpointLocked(from, e.(*types.EndpointProxy), dc)

	default:
		return db.removeRemoteEndpointLocked(dc)
	}
}

// Ack 记录 peer 对 subject 第 seq 号变更的确认，返回实体是否因此完全确认
func (db *DB) Ack(subject types.GUID, seq uint64, peer types.GUIDPrefix) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	done := db.tracker.Ack(subject, seq, peer)
	if done {
		logger.Debug("变更已完全确认", "subject", subject.ShortString(), "seq", seq)
		db.reportLocked()
	}
	return done
}
