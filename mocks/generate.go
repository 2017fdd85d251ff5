package mocks

//go:generate mockgen -destination=./mock_segment_builder.go -package=mocks github.com/rxtech-lab/argo-structure/internal/segment Builder
//go:generate mockgen -destination=./mock_marker.go -package=mocks github.com/rxtech-lab/argo-structure/internal/marker Marker
