package runtime

import "thzgateway/pkg/runtime"

func (in *THZDevice) DeepCopyObject() runtime.RunObject {
	if in == nil {
		return nil
	}
	out := *in

	out.Address = in.Address.DeepCopy()

	if in.VariablesMap != nil {
		out.VariablesMap = make(map[string]*Variable, len(in.VariablesMap))
		for name, v := range in.VariablesMap {
			copied := *v
			out.VariablesMap[name] = &copied
		}
	}

	return &out
}

func (in *Address) DeepCopy() *Address {
	if in == nil {
		return nil
	}

	out := *in
	out.Option = in.Option.DeepCopy()

	return &out
}

func (in *Option) DeepCopy() *Option {
	if in == nil {
		return nil
	}

	out := *in

	return &out
}
