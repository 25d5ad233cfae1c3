package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/foomo/objectstore/pkg/filesystem"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(w io.Writer, v any) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}

// printInfos writes one line per entry: type, size, modification time and path
func printInfos(w io.Writer, infos []filesystem.FileInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		var size, mtime string
		if info.Type == filesystem.File {
			size = fmt.Sprintf("%d", info.Size)
			mtime = info.MTime.Format(time.RFC3339)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Type, size, mtime, info.Path); err != nil {
			return err
		}
	}
	return tw.Flush()
}
