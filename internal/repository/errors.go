package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反など
	ErrConflict = errors.New("conflict")
)

// テーブルが無い（マイグレーション未実行）
var ErrSchemaNotReady = errors.New("schema not ready")
