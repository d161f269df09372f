package ops

import (
	"fmt"
	"io"
	"time"

	"github.com/abtool/abtool/internal/tariter"
)

// Ls writes a tar -tv-style listing of in's entries to w, discarding
// bodies as it goes. Grounded on ab_ls / str_ftype / str_modes /
// str_uidgid / str_size / str_mtime.
func Ls(in *InputPipeline, w io.Writer) error {
	it := tariter.New(in.Body)
	for {
		h, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%s %8s %10d %s %s\n",
			strFType(h.FType), strModes(h.Mode), strUIDGID(h.UID, h.GID, h.Uname, h.Gname), h.Size, strMtime(h.Mtime), h.Path); err != nil {
			return err
		}
		if err := it.CopyBody(nil, h); err != nil {
			return err
		}
	}
}

func strFType(ft byte) string {
	switch ft {
	case '0', 0:
		return "-"
	case '1':
		return "h"
	case '2':
		return "l"
	case '3':
		return "c"
	case '4':
		return "b"
	case '5':
		return "d"
	case '6':
		return "p"
	default:
		return "?"
	}
}

func strModes(mode int64) string {
	perms := [...]struct {
		bit  int64
		char byte
	}{
		{0o400, 'r'}, {0o200, 'w'}, {0o100, 'x'},
		{0o040, 'r'}, {0o020, 'w'}, {0o010, 'x'},
		{0o004, 'r'}, {0o002, 'w'}, {0o001, 'x'},
	}
	out := make([]byte, len(perms))
	for i, p := range perms {
		if mode&p.bit != 0 {
			out[i] = p.char
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

// strUIDGID renders the owner/group column, preferring uname/gname
// over the numeric uid/gid whenever that entry's name is non-empty -
// matching str_uidgid's independent per-field fallback.
func strUIDGID(uid, gid int64, uname, gname string) string {
	u := fmt.Sprintf("%d", uid)
	if uname != "" {
		u = uname
	}
	g := fmt.Sprintf("%d", gid)
	if gname != "" {
		g = gname
	}
	return u + "/" + g
}

func strMtime(mtime int64) string {
	return time.Unix(mtime, 0).UTC().Format("2006-01-02 15:04")
}
