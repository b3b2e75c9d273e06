package model

// LabSubgroup 实验分组及其学生名单
type LabSubgroup struct {
	Name     string   `validate:"required"`
	Students []string `validate:"required,min=1,dive,required"`
}

// SubjectConfig 课程配置：开设的课次类型与学生名册
type SubjectConfig struct {
	Name         string        `validate:"required"`
	HasLectures  bool
	HasPractices bool
	LabSubgroups []LabSubgroup `validate:"dive"` // 声明顺序
	Students     []string      `validate:"required,min=1,dive,required"`
}

// HasLabs 是否设置了实验分组
func (c *SubjectConfig) HasLabs() bool { return len(c.LabSubgroups) > 0 }

// Subgroup 按名称查找实验分组
func (c *SubjectConfig) Subgroup(name string) (*LabSubgroup, bool) {
	for i := range c.LabSubgroups {
		if c.LabSubgroups[i].Name == name {
			return &c.LabSubgroups[i], true
		}
	}
	return nil, false
}

// SubgroupIndex 分组声明序号；未声明返回 -1
func (c *SubjectConfig) SubgroupIndex(name string) int {
	for i := range c.LabSubgroups {
		if c.LabSubgroups[i].Name == name {
			return i
		}
	}
	return -1
}

// ClassTypes 课程提供的课次类型：讲座 → 实践 → 各实验分组
func (c *SubjectConfig) ClassTypes() []ClassType {
	var types []ClassType
	if c.HasLectures {
		types = append(types, Lecture())
	}
	if c.HasPractices {
		types = append(types, Practice())
	}
	for _, sg := range c.LabSubgroups {
		types = append(types, Lab(sg.Name))
	}
	return types
}

// Offers 课程是否提供该课次类型
func (c *SubjectConfig) Offers(t ClassType) bool {
	switch t.Kind {
	case KindLecture:
		return c.HasLectures
	case KindPractice:
		return c.HasPractices
	case KindLab:
		_, ok := c.Subgroup(t.Subgroup)
		return ok
	}
	return false
}

// RosterFor 某课次类型对应的学生名册（实验课为分组名单）
func (c *SubjectConfig) RosterFor(t ClassType) []string {
	if t.Kind == KindLab {
		if sg, ok := c.Subgroup(t.Subgroup); ok {
			return sg.Students
		}
		return nil
	}
	return c.Students
}
