package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/rushteam/carkit/core"
)

// 车型数据集（Cars Datasets 2025）的列名
const (
	ColumnCompany    = "Company Names"
	ColumnCarName    = "Cars Names"
	ColumnEngine     = "Engines"
	ColumnHorsepower = "HorsePower"
	ColumnTotalSpeed = "Total Speed"
	ColumnPrice      = "Cars Prices"
	ColumnFuelType   = "Fuel Types"
	ColumnSeats      = "Seats"
)

// CSVOptions 导入选项
type CSVOptions struct {
	// Windows1252 原始数据集是 cp1252 编码
	Windows1252 bool
	// StartID 第一行分配的 ID，默认 1
	StartID int64
}

// CarWriter 可写入车辆的目录（MemoryCatalog、SQLStore）
type CarWriter interface {
	PutCars(ctx context.Context, cars ...*core.Car) error
}

var digits = regexp.MustCompile(`\d+`)

// ParseCarsCSV 解析车型数据集并清洗数值列：
//   - 价格去掉 $ , 空格；"a-b" 取中点；无法解析为空
//   - 马力取所有数字的平均值（"70-85 hp" -> 77.5）
//   - 最高时速只保留数字
//   - 座位 "0-17" 取中点（向下取整），"2+2" 求和
func ParseCarsCSV(r io.Reader, opts CSVOptions) ([]*core.Car, error) {
	if opts.Windows1252 {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}
	if opts.StartID <= 0 {
		opts.StartID = 1
	}

	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewInvalidInput(core.ModuleStore, "csv: empty file")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnCompany, ColumnCarName} {
		if _, ok := index[required]; !ok {
			return nil, core.NewInvalidInput(core.ModuleStore, fmt.Sprintf("csv: missing column %q", required))
		}
	}

	cars := make([]*core.Car, 0)
	id := opts.StartID
	for line := 2; ; line++ {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		cars = append(cars, &core.Car{
			ID:          id,
			CompanyName: get(ColumnCompany),
			CarName:     get(ColumnCarName),
			Engine:      get(ColumnEngine),
			FuelType:    get(ColumnFuelType),
			Horsepower:  parseHorsepower(get(ColumnHorsepower)),
			TotalSpeed:  parseSpeed(get(ColumnTotalSpeed)),
			Price:       parsePrice(get(ColumnPrice)),
			Seats:       parseSeats(get(ColumnSeats)),
		})
		id++
	}
	return cars, nil
}

// ImportCSV 解析并写入目录，返回导入的条数
func ImportCSV(ctx context.Context, w CarWriter, r io.Reader, opts CSVOptions) (int, error) {
	cars, err := ParseCarsCSV(r, opts)
	if err != nil {
		return 0, err
	}
	if err := w.PutCars(ctx, cars...); err != nil {
		return 0, err
	}
	return len(cars), nil
}

func parsePrice(v string) *float64 {
	v = strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
	if v == "" {
		return nil
	}
	if strings.Contains(v, "-") {
		if nums := digits.FindAllString(v, -1); len(nums) == 2 {
			lo, _ := strconv.Atoi(nums[0])
			hi, _ := strconv.Atoi(nums[1])
			return core.Float(float64(lo+hi) / 2)
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return core.Float(f)
}

func parseHorsepower(v string) *float64 {
	nums := digits.FindAllString(v, -1)
	if len(nums) == 0 {
		return nil
	}
	sum := 0
	for _, n := range nums {
		x, _ := strconv.Atoi(n)
		sum += x
	}
	return core.Float(float64(sum) / float64(len(nums)))
}

func parseSpeed(v string) *float64 {
	n := strings.Join(digits.FindAllString(v, -1), "")
	if n == "" {
		return nil
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return nil
	}
	return core.Float(f)
}

func parseSeats(v string) *int {
	if strings.Contains(v, "-") {
		if nums := digits.FindAllString(v, -1); len(nums) == 2 {
			lo, _ := strconv.Atoi(nums[0])
			hi, _ := strconv.Atoi(nums[1])
			return core.Int((lo + hi) / 2)
		}
	}
	if strings.Contains(v, "+") {
		sum := 0
		for _, n := range digits.FindAllString(v, -1) {
			x, _ := strconv.Atoi(n)
			sum += x
		}
		return core.Int(sum)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return core.Int(n)
}
