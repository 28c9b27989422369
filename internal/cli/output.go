package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// OutputFormat represents the desired output format.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

var supportedFormats = []OutputFormat{FormatTable, FormatJSON, FormatCSV}

// Formatter writes a slice of rows. Table and CSV output use the `header`
// struct tag for columns; fields tagged `fmt:"hex"` print as hex.
type Formatter interface {
	Format(rows interface{}, w io.Writer) error
}

// NewFormatter creates a Formatter for the given format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatTable:
		return tableFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatCSV:
		return csvFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q, must be one of: %s", format, formatNames())
	}
}

type jsonFormatter struct{}

func (jsonFormatter) Format(rows interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

type tableFormatter struct{}

func (tableFormatter) Format(rows interface{}, w io.Writer) error {
	headers, values, err := tabulate(rows)
	if err != nil || headers == nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range values {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type csvFormatter struct{}

func (csvFormatter) Format(rows interface{}, w io.Writer) error {
	headers, values, err := tabulate(rows)
	if err != nil || headers == nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(values); err != nil {
		return err
	}
	return cw.Error()
}

// tabulate flattens a slice of structs into headers and cells.
func tabulate(rows interface{}) ([]string, [][]string, error) {
	val := reflect.ValueOf(rows)
	if val.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("data must be a slice")
	}
	if val.Len() == 0 {
		return nil, nil, nil
	}

	elemType := val.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}

	var (
		headers []string
		fields  []int
	)
	for i := 0; i < elemType.NumField(); i++ {
		if tag := elemType.Field(i).Tag.Get("header"); tag != "" {
			headers = append(headers, tag)
			fields = append(fields, i)
		}
	}

	values := make([][]string, 0, val.Len())
	for i := 0; i < val.Len(); i++ {
		row := reflect.Indirect(val.Index(i))
		cells := make([]string, 0, len(fields))
		for _, f := range fields {
			cells = append(cells, cell(row.Field(f), elemType.Field(f)))
		}
		values = append(values, cells)
	}
	return headers, values, nil
}

func cell(v reflect.Value, field reflect.StructField) string {
	if field.Tag.Get("fmt") == "hex" {
		switch v.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return fmt.Sprintf("%#x", v.Uint())
		}
	}
	return fmt.Sprintf("%v", v.Interface())
}

func formatNames() string {
	names := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// addFormatFlag adds the --format/-o flag with shell completion.
func addFormatFlag(cmd *cobra.Command, formatVar *string) {
	cmd.Flags().StringVarP(formatVar, "format", "o", string(FormatTable),
		fmt.Sprintf("Output format (%s)", formatNames()))

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return strings.Split(formatNames(), ", "), cobra.ShellCompDirectiveNoFileComp
	})
}
