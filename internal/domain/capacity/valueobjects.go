package capacity

// BindingSource identifies which pool backs a consumer binding. The source
// system encoded this as ad-hoc string literals; here it is a closed enum so
// a binding can only ever reference one of the two pools.
type BindingSource string

const (
	SourcePlan  BindingSource = "plan"
	SourceToken BindingSource = "token"
)

func (s BindingSource) IsValid() bool {
	return s == SourcePlan || s == SourceToken
}

func (s BindingSource) String() string {
	return string(s)
}
