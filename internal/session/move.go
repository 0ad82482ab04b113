package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v3"
	rain "github.com/cenkalti/rain/torrent"
	"github.com/cenkalti/rainview/internal/settings"
	"github.com/cenkalti/rainview/torrent"
	cp "github.com/otiai10/copy"
)

var errNotStopped = errors.New("torrent is not stopped yet")

// moveStorage moves the files of the torrent into dir/<torrent id>.
// Rain keeps reading from DataDir/<torrent id>, so a symlink pointing to the new location is left there.
// Moving into DataDir replaces the symlink with the files.
func (s *Session) moveStorage(h *handle, dir string) (err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return err
	}

	s.m.Lock()
	if _, ok := s.torrents[h.id]; !ok {
		s.m.Unlock()
		return torrent.ErrInvalidHandle
	}
	if _, ok := s.moving[h.id]; ok {
		s.m.Unlock()
		return fmt.Errorf("torrent %s is already being moved", h.id)
	}
	s.moving[h.id] = struct{}{}
	s.m.Unlock()
	defer func() {
		s.m.Lock()
		delete(s.moving, h.id)
		s.m.Unlock()
	}()

	st, _, err := s.settings.Get(h.id)
	if err != nil {
		return err
	}
	link := s.dataPath(h.id)
	src := link
	if st.SavePath != "" {
		src = st.SavePath
	}
	dst := filepath.Join(dir, h.id)
	if dst == src {
		return nil
	}
	if dst != link {
		if _, err = os.Lstat(dst); err == nil {
			return fmt.Errorf("target already exists: %s", dst)
		}
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	wasRunning := h.t.Stats().Status != rain.Stopped
	if wasRunning {
		if err = h.t.Stop(); err != nil {
			return err
		}
		defer func() {
			if err == nil || !wasRunning {
				return
			}
			if err2 := s.start(h); err2 != nil {
				s.log.Errorf("cannot restart torrent %s after failed move: %s", h.id, err2)
			}
		}()
		if err = s.waitStopped(h.t); err != nil {
			return err
		}
	}

	if dst == link {
		if err = removeSymlink(link); err != nil {
			return err
		}
	}
	s.log.Infof("moving torrent %s from %s to %s", h.id, src, dst)
	err = moveDir(src, dst)
	if err != nil {
		if dst == link {
			if err2 := os.Symlink(src, link); err2 != nil {
				s.log.Errorf("cannot restore link of torrent %s: %s", h.id, err2)
			}
		}
		return err
	}
	if dst == link {
		st.SavePath = ""
	} else {
		if src != link {
			if err = os.Remove(link); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		if err = os.Symlink(dst, link); err != nil {
			return err
		}
		st.SavePath = dst
	}
	err = s.settings.Update(h.id, func(st2 *settings.Settings) error {
		st2.SavePath = st.SavePath
		return nil
	})
	if err != nil {
		return err
	}
	if wasRunning {
		wasRunning = false
		return s.start(h)
	}
	return nil
}

// removeSymlink removes the link left by a previous move. It fails if path is not a symlink.
func removeSymlink(path string) error {
	fi, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("target already exists: %s", path)
	}
	return os.Remove(path)
}

// moveDir renames src to dst, falling back to copy and delete when they are on different devices.
// If src does not exist an empty dst is created.
func moveDir(src, dst string) error {
	_, err := os.Stat(src)
	if os.IsNotExist(err) {
		return os.MkdirAll(dst, 0o750)
	}
	if err != nil {
		return err
	}
	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	err = cp.Copy(src, dst)
	if err != nil {
		os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

func (s *Session) waitStopped(t *rain.Torrent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = s.config.MoveStopTimeout
	return backoff.Retry(func() error {
		if t.Stats().Status != rain.Stopped {
			return errNotStopped
		}
		return nil
	}, b)
}
