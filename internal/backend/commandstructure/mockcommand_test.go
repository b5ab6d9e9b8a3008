package commandstructure

// mockCommand is a simple mock implementation of the Command interface for testing
type mockCommand struct {
	name        string
	executeFunc func(*ImageData) (*ImageData, error)
}

func (m *mockCommand) Name() string {
	return m.name
}

func (m *mockCommand) Execute(image *ImageData) (*ImageData, error) {
	if m.executeFunc != nil {
		return m.executeFunc(image)
	}
	return image, nil
}

// newMockCommand creates a mock command with pass-through behavior
func newMockCommand(name string) *mockCommand {
	return &mockCommand{name: name}
}

// newMockCommandWithError creates a mock command that returns an error
func newMockCommandWithError(name string, err error) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(*ImageData) (*ImageData, error) {
			return nil, err
		},
	}
}

// appendingCommand tags the payload so tests can verify ordering
func appendingCommand(name, suffix string) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(image *ImageData) (*ImageData, error) {
			data := append(append([]byte{}, image.Data...), []byte(suffix)...)
			return &ImageData{Filename: image.Filename, Data: data, Metadata: image.Metadata}, nil
		},
	}
}
