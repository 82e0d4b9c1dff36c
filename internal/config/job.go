package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Job はジョブファイル (YAML) の内容です
type Job struct {
	Generation Generation `yaml:"generation"`
}

// Generation は生成パラメータの生の値です
// 省略可能な値はポインタで受け取り、Resolve で既定値を補います
type Generation struct {
	Seed              *uint64                     `yaml:"seed"`
	Dates             DateRange                   `yaml:"dates"`
	Hotels            CountSpec                   `yaml:"hotels"`
	Ratios            RatioSpec                   `yaml:"ratios"`
	Customers         CustomerSpec                `yaml:"customers"`
	RampUpDays        *int                        `yaml:"ramp_up_days"`
	TargetOccupancy   *float64                    `yaml:"target_occupancy"`
	TargetOccupancySD *float64                    `yaml:"target_occupancy_sd"`
	Billing           string                      `yaml:"billing"`
	Payment           PaymentSpec                 `yaml:"payment"`
	Archetypes        map[string]ArchetypeSpec    `yaml:"archetypes"`
	PropertyTypes     map[string]PropertyTypeSpec `yaml:"property_types"`
}

type DateRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type CountSpec struct {
	Count float64 `yaml:"count"`
	SD    float64 `yaml:"sd"`
}

type RatioSpec struct {
	Resorts *float64 `yaml:"resorts"`
	Hotels  *float64 `yaml:"hotels"`
	Motels  *float64 `yaml:"motels"`
}

type CustomerSpec struct {
	Count   float64 `yaml:"count"`
	SD      float64 `yaml:"sd"`
	StateSD float64 `yaml:"state_sd"`
}

type PaymentSpec struct {
	MaxAttempts *int               `yaml:"max_attempts"`
	Outcomes    map[string]float64 `yaml:"outcomes"`
}

// ArchetypeSpec は顧客類型ごとの上書き設定です
type ArchetypeSpec struct {
	Percentage          *float64           `yaml:"percentage"`
	SelectionWeight     *float64           `yaml:"selection_weight"`
	StayDurationWeights map[string]float64 `yaml:"stay_duration_weights"`
	MinGapDays          *int               `yaml:"min_gap_days"`
}

// PropertyTypeSpec は施設種別ごとの上書き設定です
type PropertyTypeSpec struct {
	TotalRooms   *Range           `yaml:"total_rooms"`
	BasePrice    *Range           `yaml:"base_price"`
	Distribution map[string]Range `yaml:"distribution"`
}

// LoadJob はジョブファイルを読み込みます
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}

	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	return job, nil
}

// ParseJob はYAMLをジョブとして解釈します
// 未知のキーはタイプミスとみなしてエラーにします
func ParseJob(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var job Job
	if err := dec.Decode(&job); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("job is empty")
		}
		return nil, err
	}
	return &job, nil
}
