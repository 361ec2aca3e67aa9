package atfile

import (
	"time"

	"github.com/calvinalkan/outline/pkg/outline"
)

// StripSentinels returns the source described by sentinel-annotated text:
// what a compiler would see once the outline structure is taken away. Doc
// parts stay as comments.
func StripSentinels(text string) (string, error) {
	o := outline.New(outline.NewGenerator("", time.Now()))

	n := o.NewNode("", "")
	if err := o.AddRoot(n.GNX()); err != nil {
		return "", err
	}

	res, err := Read(o, o.RootAt(0), text, ReadOptions{})
	if err != nil {
		return "", err
	}

	out, err := Write(o, res.Root, WriteOptions{
		Delims:      res.Delims,
		Encoding:    res.Encoding,
		NoSentinels: true,
	})
	if err != nil {
		return "", err
	}

	return out.Text, nil
}
