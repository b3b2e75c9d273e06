package roster

import (
	"github.com/mintyspider/attendance-report/internal/model"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// Catalog 只读的课程目录，按声明顺序保存课程配置
type Catalog struct {
	subjects []model.SubjectConfig
	index    map[string]int
}

// NewCatalog 校验并构建课程目录
func NewCatalog(subjects []model.SubjectConfig) (*Catalog, error) {
	if len(subjects) == 0 {
		return nil, apperrors.NewConfigurationError("", "未配置任何课程", nil)
	}

	c := &Catalog{
		subjects: make([]model.SubjectConfig, 0, len(subjects)),
		index:    make(map[string]int, len(subjects)),
	}
	for _, s := range subjects {
		fillStudentsFromLabs(&s)
		if err := validateSubject(&s); err != nil {
			return nil, err
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, apperrors.NewConfigurationError(s.Name, "课程重复", nil)
		}
		c.index[s.Name] = len(c.subjects)
		c.subjects = append(c.subjects, s)
	}
	return c, nil
}

// fillStudentsFromLabs 仅有实验课且未给出课程名册时，名册取各分组成员的并集
func fillStudentsFromLabs(s *model.SubjectConfig) {
	if len(s.Students) > 0 {
		return
	}
	seen := make(map[string]bool)
	for _, sg := range s.LabSubgroups {
		for _, st := range sg.Students {
			if !seen[st] {
				seen[st] = true
				s.Students = append(s.Students, st)
			}
		}
	}
}

// Subject 按名称查找课程；未配置返回 ConfigurationError
func (c *Catalog) Subject(name string) (*model.SubjectConfig, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, apperrors.NewConfigurationError(name, "课程未配置", nil)
	}
	return &c.subjects[i], nil
}

// Names 课程名称（声明顺序）
func (c *Catalog) Names() []string {
	names := make([]string, len(c.subjects))
	for i := range c.subjects {
		names[i] = c.subjects[i].Name
	}
	return names
}

// ClassTypes 课程开设的课次类型
func (c *Catalog) ClassTypes(subject string) ([]model.ClassType, error) {
	cfg, err := c.Subject(subject)
	if err != nil {
		return nil, err
	}
	return cfg.ClassTypes(), nil
}

// Roster 某课次类型的学生名册；课程未开设该类型时返回 ValidationError
func (c *Catalog) Roster(subject string, t model.ClassType) ([]string, error) {
	cfg, err := c.Subject(subject)
	if err != nil {
		return nil, err
	}
	if !cfg.Offers(t) {
		return nil, apperrors.NewValidationError("class_type", "课程未开设该课次类型: "+t.Label())
	}
	return append([]string(nil), cfg.RosterFor(t)...), nil
}
