package mididarwin

// entityIndex maps an endpoint to the name of the entity that owns it.
type entityIndex[K comparable] map[K]string

// add records entity as the owner of endpoints. An endpoint reported by two
// entities keeps the first name.
func (x entityIndex[K]) add(entity string, endpoints ...K) {
	for _, e := range endpoints {
		if _, ok := x[e]; !ok {
			x[e] = entity
		}
	}
}

// name returns "" for endpoints without an entity, such as virtual destinations.
func (x entityIndex[K]) name(endpoint K) string {
	return x[endpoint]
}
