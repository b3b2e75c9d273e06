package model

import (
	"strings"

	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// ClassKind 课次类别
type ClassKind int

const (
	KindLecture ClassKind = iota + 1
	KindPractice
	KindLab
)

// 固定标签集合
const (
	LabelLecture   = "Лекция"
	LabelPractice  = "Практика"
	LabelLabPrefix = "Лабораторная работа"
	labSeparator   = " - "
)

// ClassType 课次类型：讲座、实践课或某个实验分组
type ClassType struct {
	Kind     ClassKind
	Subgroup string // 仅 KindLab 有效
}

// Lecture 讲座课次
func Lecture() ClassType { return ClassType{Kind: KindLecture} }

// Practice 实践课次
func Practice() ClassType { return ClassType{Kind: KindPractice} }

// Lab 指定分组的实验课次
func Lab(subgroup string) ClassType { return ClassType{Kind: KindLab, Subgroup: subgroup} }

// Label 存储与报表使用的标签
func (t ClassType) Label() string {
	switch t.Kind {
	case KindLecture:
		return LabelLecture
	case KindPractice:
		return LabelPractice
	case KindLab:
		return LabelLabPrefix + labSeparator + t.Subgroup
	}
	return ""
}

func (t ClassType) String() string { return t.Label() }

// IsLab 是否为实验课次
func (t ClassType) IsLab() bool { return t.Kind == KindLab }

// ParseClassType 由标签解析课次类型
func ParseClassType(label string) (ClassType, error) {
	label = strings.TrimSpace(label)
	switch label {
	case LabelLecture:
		return Lecture(), nil
	case LabelPractice:
		return Practice(), nil
	}
	if rest, ok := strings.CutPrefix(label, LabelLabPrefix+labSeparator); ok && strings.TrimSpace(rest) != "" {
		return Lab(strings.TrimSpace(rest)), nil
	}
	return ClassType{}, apperrors.NewValidationError("class_type", "未知的课次类型 "+label)
}
