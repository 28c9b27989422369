package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/covmap/internal/elfscan"
	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/segment"
)

type segmentInfo struct {
	Base uint64 `json:"base"`
	Size uint64 `json:"size"`
}

type imageInfo struct {
	File         string        `json:"file"`
	Class        string        `json:"class"`
	Type         string        `json:"type"`
	Machine      string        `json:"machine"`
	BuildID      string        `json:"build_id,omitempty"`
	DebugLink    string        `json:"debug_link,omitempty"`
	DebugLinkCRC uint32        `json:"debug_link_crc,omitempty"`
	Checksum     uint64        `json:"checksum"`
	HasDWARF     bool          `json:"has_dwarf"`
	Segments     []segmentInfo `json:"exec_segments"`
	GcdaFiles    []string      `json:"gcda_files,omitempty"`
	GcnoFiles    []string      `json:"gcno_files,omitempty"`
}

type fieldRow struct {
	Field string `header:"FIELD"`
	Value string `header:"VALUE"`
}

func describe(img *elfscan.Image) imageInfo {
	info := imageInfo{
		File:         img.Filename,
		Class:        img.Class.String(),
		Type:         img.Type.String(),
		Machine:      img.Machine.String(),
		BuildID:      img.BuildID,
		DebugLink:    img.DebugLink,
		DebugLinkCRC: img.DebugLinkCRC,
		Checksum:     img.Checksum,
		Segments:     segments(img.ExecSegments),
		GcdaFiles:    img.GcdaFiles,
		GcnoFiles:    img.GcnoFiles,
	}
	if _, err := img.DWARF(); err == nil {
		info.HasDWARF = true
	}
	return info
}

func segments(list segment.List) []segmentInfo {
	out := make([]segmentInfo, 0, len(list))
	for _, s := range list {
		out = append(out, segmentInfo{Base: s.Base(), Size: s.Size()})
	}
	return out
}

func (i imageInfo) rows() []fieldRow {
	rows := []fieldRow{
		{"file", i.File},
		{"class", i.Class},
		{"type", i.Type},
		{"machine", i.Machine},
		{"build-id", i.BuildID},
		{"debug-link", i.DebugLink},
		{"checksum", fmt.Sprintf("%#016x", i.Checksum)},
		{"dwarf", fmt.Sprintf("%t", i.HasDWARF)},
	}
	if i.DebugLink != "" {
		rows = append(rows, fieldRow{"debug-link-crc", fmt.Sprintf("%#08x", i.DebugLinkCRC)})
	}
	for _, s := range i.Segments {
		rows = append(rows, fieldRow{"exec-segment", fmt.Sprintf("%#x-%#x", s.Base, s.Base+s.Size)})
	}
	for _, f := range i.GcdaFiles {
		rows = append(rows, fieldRow{"gcda", f})
	}
	for _, f := range i.GcnoFiles {
		rows = append(rows, fieldRow{"gcno", f})
	}
	return rows
}

func newInfoCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <binary>",
		Short: "Show what covmap sees in an ELF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := NewFormatter(OutputFormat(format))
			if err != nil {
				return err
			}
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			img, err := elfscan.Load(args[0], elfscan.Options{
				ScanGcda: cfg.Parser.Gcov,
				Checksum: true,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			defer errors.DeferClose(logger, img, "failed to unmap file")

			info := describe(img)
			if OutputFormat(format) == FormatJSON {
				return formatter.Format(info, cmd.OutOrStdout())
			}
			return formatter.Format(info.rows(), cmd.OutOrStdout())
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}
