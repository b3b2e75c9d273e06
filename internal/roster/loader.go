package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mintyspider/attendance-report/internal/model"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

var validate = validator.New()

// subjectDoc 文档中单个课程的原始形态
type subjectDoc struct {
	Lectures  bool     `json:"lectures" yaml:"lectures"`
	Practices bool     `json:"practices" yaml:"practices"`
	Students  []string `json:"students" yaml:"students"`
}

// Load 读取课程配置文件（.json / .yaml / .yml），保持 subjects 与 labs 的声明顺序
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("", "读取课程配置失败", err)
	}

	var subjects []model.SubjectConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		subjects, err = parseYAML(data)
	default:
		subjects, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}
	return NewCatalog(subjects)
}

// ═══════════════════════════════════════════════════════════
// JSON：按 token 流读取对象键以保留顺序
// ═══════════════════════════════════════════════════════════

func parseJSON(data []byte) ([]model.SubjectConfig, error) {
	var doc struct {
		Students []string        `json:"students"`
		Subjects json.RawMessage `json:"subjects"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, malformed("", err)
	}
	if len(doc.Subjects) == 0 {
		return nil, apperrors.NewConfigurationError("", "缺少 subjects 节点", nil)
	}

	names, raws, err := orderedObject(doc.Subjects)
	if err != nil {
		return nil, malformed("", err)
	}

	out := make([]model.SubjectConfig, 0, len(names))
	for _, name := range names {
		var s subjectDoc
		if err := json.Unmarshal(raws[name], &s); err != nil {
			return nil, malformed(name, err)
		}
		var labs struct {
			Labs json.RawMessage `json:"labs"`
		}
		if err := json.Unmarshal(raws[name], &labs); err != nil {
			return nil, malformed(name, err)
		}

		cfg := newSubjectConfig(name, s, doc.Students)
		if len(labs.Labs) > 0 && !bytes.Equal(bytes.TrimSpace(labs.Labs), []byte("null")) {
			sgNames, sgRaws, err := orderedObject(labs.Labs)
			if err != nil {
				return nil, malformed(name, err)
			}
			for _, sg := range sgNames {
				var members []string
				if err := json.Unmarshal(sgRaws[sg], &members); err != nil {
					return nil, malformed(name, err)
				}
				cfg.LabSubgroups = append(cfg.LabSubgroups, model.LabSubgroup{Name: sg, Students: members})
			}
		}
		out = append(out, cfg)
	}
	return out, nil
}

// orderedObject 解析 JSON 对象，返回按出现顺序排列的键
func orderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("期望 JSON 对象")
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("对象键必须为字符串")
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	return keys, values, nil
}

// ═══════════════════════════════════════════════════════════
// YAML：遍历 yaml.v3 节点树，映射节点的 Content 按键值交替排列
// ═══════════════════════════════════════════════════════════

func parseYAML(data []byte) ([]model.SubjectConfig, error) {
	var doc struct {
		Students []string  `yaml:"students"`
		Subjects yaml.Node `yaml:"subjects"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, malformed("", err)
	}
	if doc.Subjects.Kind == 0 {
		return nil, apperrors.NewConfigurationError("", "缺少 subjects 节点", nil)
	}
	if doc.Subjects.Kind != yaml.MappingNode {
		return nil, malformed("", fmt.Errorf("第 %d 行: subjects 应为映射", doc.Subjects.Line))
	}

	out := make([]model.SubjectConfig, 0, len(doc.Subjects.Content)/2)
	for i := 0; i+1 < len(doc.Subjects.Content); i += 2 {
		name := doc.Subjects.Content[i].Value
		node := doc.Subjects.Content[i+1]

		var s subjectDoc
		if err := node.Decode(&s); err != nil {
			return nil, malformed(name, err)
		}
		var labs struct {
			Labs yaml.Node `yaml:"labs"`
		}
		if err := node.Decode(&labs); err != nil {
			return nil, malformed(name, err)
		}

		cfg := newSubjectConfig(name, s, doc.Students)
		switch labs.Labs.Kind {
		case 0:
		case yaml.MappingNode:
			for j := 0; j+1 < len(labs.Labs.Content); j += 2 {
				var members []string
				if err := labs.Labs.Content[j+1].Decode(&members); err != nil {
					return nil, malformed(name, err)
				}
				cfg.LabSubgroups = append(cfg.LabSubgroups, model.LabSubgroup{
					Name:     labs.Labs.Content[j].Value,
					Students: members,
				})
			}
		case yaml.ScalarNode:
			if labs.Labs.Tag != "!!null" {
				return nil, malformed(name, fmt.Errorf("第 %d 行: labs 应为映射", labs.Labs.Line))
			}
		default:
			return nil, malformed(name, fmt.Errorf("第 %d 行: labs 应为映射", labs.Labs.Line))
		}
		out = append(out, cfg)
	}
	return out, nil
}

// newSubjectConfig 课程未单独列出学生时使用文档顶层的 students
func newSubjectConfig(name string, s subjectDoc, fallback []string) model.SubjectConfig {
	students := s.Students
	if len(students) == 0 {
		students = append([]string(nil), fallback...)
	}
	return model.SubjectConfig{
		Name:         name,
		HasLectures:  s.Lectures,
		HasPractices: s.Practices,
		Students:     students,
	}
}

func malformed(subject string, err error) error {
	return apperrors.NewConfigurationError(subject, "课程配置格式错误", err)
}

// ── 校验 ──

// validateSubject 结构校验 + 跨字段校验
func validateSubject(cfg *model.SubjectConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.NewConfigurationError(cfg.Name,
				fmt.Sprintf("字段 %s 不满足 %s", fe.Namespace(), fe.Tag()), nil)
		}
		return apperrors.NewConfigurationError(cfg.Name, "课程配置校验失败", err)
	}

	for _, st := range cfg.Students {
		if strings.TrimSpace(st) == "" {
			return apperrors.NewConfigurationError(cfg.Name, "学生姓名不能为空", nil)
		}
	}

	onRoster := make(map[string]bool, len(cfg.Students))
	for _, st := range cfg.Students {
		onRoster[st] = true
	}
	seen := make(map[string]bool, len(cfg.LabSubgroups))
	for _, sg := range cfg.LabSubgroups {
		if strings.TrimSpace(sg.Name) == "" {
			return apperrors.NewConfigurationError(cfg.Name, "实验分组名称不能为空", nil)
		}
		if seen[sg.Name] {
			return apperrors.NewConfigurationError(cfg.Name, "实验分组重复: "+sg.Name, nil)
		}
		seen[sg.Name] = true
		for _, st := range sg.Students {
			if !onRoster[st] {
				return apperrors.NewConfigurationError(cfg.Name,
					fmt.Sprintf("实验分组 %s 的学生 %s 不在课程名册中", sg.Name, st), nil)
			}
		}
	}
	return nil
}
