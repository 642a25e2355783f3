package store

import "fmt"

// AgentTips returns the bullet items of a task's Agent Tips section.
// A task without the section has no tips.
func (s *Store) AgentTips(id string) ([]string, error) {
	rec, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}

	content, ok := sectionContent(rec.Body, sectionAgentTips)
	if !ok {
		return nil, nil
	}
	return bulletItems(content), nil
}

// UpdateAgentTips rewrites a task's Agent Tips section. With replace
// false the new tips are appended to the existing ones; with replace
// true they stand alone. The section is created when missing.
func (s *Store) UpdateAgentTips(id string, tips []string, replace bool) error {
	path := s.findTaskFile(id)
	if path == "" {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	unlock := s.lockPath(path)
	defer unlock()

	fields, body, err := s.readEntity(path)
	if err != nil {
		return fmt.Errorf("failed to read task %q: %w", id, err)
	}

	combined := tips
	if !replace {
		if content, ok := sectionContent(body, sectionAgentTips); ok {
			combined = append(bulletItems(content), tips...)
		}
	}

	body = spliceSection(body, sectionAgentTips, renderBullets(combined), "")
	if err := s.writeEntity(path, fields, body); err != nil {
		return err
	}

	s.logger.Printf("updated agent tips for task %q (%d tips)", id, len(combined))
	return nil
}
