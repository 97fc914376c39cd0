package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fiberatt/internal/attenuation"
	"fiberatt/internal/config"
)

// CSVOptions 控制两列 CSV 的解析。
type CSVOptions struct {
	Delimiter rune
	// Header 取值 auto / none / skip，见 config.HeaderAuto 等。
	Header  string
	Comment string
}

// CSVOptionsFromConfig 把 loader 配置转换为解析选项。
func CSVOptionsFromConfig(cfg config.LoaderConfig) CSVOptions {
	return CSVOptions{
		Delimiter: cfg.DelimiterRune(),
		Header:    cfg.Header,
		Comment:   cfg.Comment,
	}
}

func (o CSVOptions) normalized() CSVOptions {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	o.Header = strings.ToLower(strings.TrimSpace(o.Header))
	if o.Header == "" {
		o.Header = config.HeaderAuto
	}
	return o
}

// CSVFile 从磁盘文件读取样本。
type CSVFile struct {
	Path string
	Opts CSVOptions
}

func NewCSVFile(path string, opts CSVOptions) *CSVFile {
	return &CSVFile{Path: path, Opts: opts}
}

func (f *CSVFile) Name() string {
	return filepath.Base(f.Path)
}

func (f *CSVFile) Load(ctx context.Context) (attenuation.SampleSet, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, fmt.Errorf("csv path cannot be empty")
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer file.Close()
	samples, err := ParseCSV(ctx, file, f.Opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
	}
	return samples, nil
}

// CSVReader 从任意 io.Reader 读取样本。
type CSVReader struct {
	Label string
	R     io.Reader
	Opts  CSVOptions
}

func (r *CSVReader) Name() string {
	if r.Label == "" {
		return "reader"
	}
	return r.Label
}

func (r *CSVReader) Load(ctx context.Context) (attenuation.SampleSet, error) {
	return ParseCSV(ctx, r.R, r.Opts)
}

// ParseCSV 解析前两列为 (长度, 功率)，多余的列被忽略。
// 空行与注释行被跳过；表头按 Header 策略处理。
func ParseCSV(ctx context.Context, r io.Reader, opts CSVOptions) (attenuation.SampleSet, error) {
	opts = opts.normalized()
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	if c := []rune(opts.Comment); len(c) > 0 && c[0] != opts.Delimiter {
		reader.Comment = c[0]
	}

	var samples attenuation.SampleSet
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		isFirst := first
		first = false
		if isFirst && opts.Header == config.HeaderSkip {
			continue
		}
		if isFirst && opts.Header == config.HeaderAuto && looksLikeHeader(record) {
			continue
		}
		if len(record) < 2 {
			return nil, &ParseError{Line: line, Column: len(record) + 1, Value: "", Err: errors.New("expected at least 2 columns")}
		}
		length, lerr := parseCell(record[0])
		power, perr := parseCell(record[1])
		if lerr != nil {
			return nil, &ParseError{Line: line, Column: 1, Value: record[0], Err: lerr}
		}
		if perr != nil {
			return nil, &ParseError{Line: line, Column: 2, Value: record[1], Err: perr}
		}
		samples = append(samples, attenuation.Sample{Length: length, Power: power})
	}
	return samples, nil
}

// looksLikeHeader 判断前两个单元格中是否有非数值，列数不足的表头同样适用。
func looksLikeHeader(record []string) bool {
	for _, cell := range record[:min(len(record), 2)] {
		if _, err := parseCell(cell); err != nil {
			return true
		}
	}
	return false
}

func parseCell(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
