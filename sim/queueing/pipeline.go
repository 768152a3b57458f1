package queueing

import (
	"github.com/sarchlab/unicache/sim"
)

type pipelineStageInfo[T any] struct {
	elem      T
	occupied  bool
	cycleLeft int
}

// Pipeline models a fixed-latency structure. Elements enter the first stage,
// spend cyclePerStage cycles in every stage and land in the post-pipeline
// buffer.
type Pipeline[T any] struct {
	sim.HookableBase

	name            string
	width           int
	numStage        int
	cyclePerStage   int
	postPipelineBuf *Buffer[T]
	stages          [][]pipelineStageInfo[T]
}

// Name returns the name of the pipeline.
func (p *Pipeline[T]) Name() string {
	return p.name
}

// Clear discards all the items in the pipeline.
func (p *Pipeline[T]) Clear() {
	p.stages = make([][]pipelineStageInfo[T], p.width)
	for i := 0; i < p.width; i++ {
		p.stages[i] = make([]pipelineStageInfo[T], p.numStage)
	}
}

// Tick moves elements in the pipeline forward.
func (p *Pipeline[T]) Tick() (madeProgress bool) {
	for lane := 0; lane < p.width; lane++ {
		for i := p.numStage - 1; i >= 0; i-- {
			stage := &p.stages[lane][i]

			if !stage.occupied {
				continue
			}

			if stage.cycleLeft > 0 {
				stage.cycleLeft--
				madeProgress = true

				continue
			}

			if i == p.numStage-1 {
				madeProgress =
					p.tryMoveToPostPipelineBuffer(stage) || madeProgress
			} else {
				madeProgress = p.tryMoveToNextStage(lane, i) || madeProgress
			}
		}
	}

	return madeProgress
}

func (p *Pipeline[T]) tryMoveToPostPipelineBuffer(
	stage *pipelineStageInfo[T],
) (succeed bool) {
	if err := p.postPipelineBuf.Push(stage.elem); err != nil {
		return false
	}

	*stage = pipelineStageInfo[T]{}

	return true
}

func (p *Pipeline[T]) tryMoveToNextStage(lane, stageNum int) (succeed bool) {
	stage := &p.stages[lane][stageNum]
	nextStage := &p.stages[lane][stageNum+1]

	if nextStage.occupied {
		return false
	}

	nextStage.elem = stage.elem
	nextStage.occupied = true
	nextStage.cycleLeft = p.cyclePerStage - 1
	*stage = pipelineStageInfo[T]{}

	return true
}

// CanAccept checks if the pipeline can accept a new element.
func (p *Pipeline[T]) CanAccept() bool {
	if p.numStage == 0 {
		return p.postPipelineBuf.CanPush()
	}

	for lane := 0; lane < p.width; lane++ {
		if !p.stages[lane][0].occupied {
			return true
		}
	}

	return false
}

// Accept adds an element to the pipeline. If the first pipeline stage is
// currently occupied, this function panics.
func (p *Pipeline[T]) Accept(elem T) {
	if p.numStage == 0 {
		if err := p.postPipelineBuf.Push(elem); err != nil {
			panic(err)
		}

		return
	}

	for lane := 0; lane < p.width; lane++ {
		if p.stages[lane][0].occupied {
			continue
		}

		p.stages[lane][0] = pipelineStageInfo[T]{
			elem:      elem,
			occupied:  true,
			cycleLeft: p.cyclePerStage - 1,
		}

		return
	}

	panic("pipeline is not free. Use CanAccept before accepting.")
}

// NumInFlight returns the number of elements still inside the stages.
func (p *Pipeline[T]) NumInFlight() int {
	n := 0

	for lane := range p.stages {
		for i := range p.stages[lane] {
			if p.stages[lane][i].occupied {
				n++
			}
		}
	}

	return n
}

// A PipelineBuilder can build pipelines.
type PipelineBuilder[T any] struct {
	width           int
	numStage        int
	cyclePerStage   int
	postPipelineBuf *Buffer[T]
}

// MakePipelineBuilder creates a default builder
func MakePipelineBuilder[T any]() PipelineBuilder[T] {
	return PipelineBuilder[T]{
		width:         1,
		numStage:      5,
		cyclePerStage: 1,
	}
}

// WithPipelineWidth sets the number of lanes in the pipeline. If width=4,
// 4 elements can be in the same stage at the same time.
func (b PipelineBuilder[T]) WithPipelineWidth(n int) PipelineBuilder[T] {
	b.width = n
	return b
}

// WithNumStage sets the number of pipeline stages
func (b PipelineBuilder[T]) WithNumStage(n int) PipelineBuilder[T] {
	b.numStage = n
	return b
}

// WithCyclePerStage sets the the number of cycles that each element needs to
// stage in each stage.
func (b PipelineBuilder[T]) WithCyclePerStage(n int) PipelineBuilder[T] {
	b.cyclePerStage = n
	return b
}

// WithPostPipelineBuffer sets the buffer that the elements can be pushed to
// after passing through the pipeline.
func (b PipelineBuilder[T]) WithPostPipelineBuffer(
	buf *Buffer[T],
) PipelineBuilder[T] {
	b.postPipelineBuf = buf
	return b
}

// Build builds a pipeline.
func (b PipelineBuilder[T]) Build(name string) *Pipeline[T] {
	sim.NameMustBeValid(name)

	if b.postPipelineBuf == nil {
		panic("pipeline " + name + " requires a post-pipeline buffer")
	}

	p := &Pipeline[T]{
		name:            name,
		width:           b.width,
		numStage:        b.numStage,
		cyclePerStage:   b.cyclePerStage,
		postPipelineBuf: b.postPipelineBuf,
	}

	p.Clear()

	return p
}
