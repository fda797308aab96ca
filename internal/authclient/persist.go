// Package authclient はサーバーの認証APIを利用するクライアント側セッションストアを提供する。
//
// 認証の正は常にサーバーが発行するHttpOnly Cookieであり、このストアが持つ
// 状態はUI表示のためのミラーにすぎない。PersisterはそのミラーをAPI呼び出し
// をまたいで保存する仕組みで、ブラウザクライアントのlocalStorage相当。
package authclient

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/hitoshi/devpress/internal/model"
)

// State は永続化されるセッション状態のスナップショット。
type State struct {
	User            *model.User `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// Persister はセッション状態の保存先インターフェース。
type Persister interface {
	// Save は状態を保存する。
	Save(state State) error
	// Load は保存済みの状態を返す。保存がない場合は2番目の戻り値がfalse。
	Load() (State, bool, error)
	// Clear は保存済みの状態を破棄する。冪等。
	Clear() error
}

// MemoryPersister はプロセス内にのみ状態を保持するPersister。
type MemoryPersister struct {
	mu    sync.Mutex
	state State
	saved bool
}

// NewMemoryPersister はMemoryPersisterを生成する。
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Save は状態を保存する。
func (p *MemoryPersister) Save(state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.saved = true
	return nil
}

// Load は保存済みの状態を返す。
func (p *MemoryPersister) Load() (State, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.saved, nil
}

// Clear は保存済みの状態を破棄する。
func (p *MemoryPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = State{}
	p.saved = false
	return nil
}

// FilePersister はJSONファイルに状態を保存するPersister。
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister は指定パスに保存するFilePersisterを生成する。
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Save は状態をJSONファイルへ書き込む。
func (p *FilePersister) Save(state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o600)
}

// Load はJSONファイルから状態を読み込む。ファイルがなければ未保存扱い。
func (p *FilePersister) Load() (State, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// 壊れたファイルは未保存として扱い、次のSaveで上書きする
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear は保存ファイルを削除する。
func (p *FilePersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
