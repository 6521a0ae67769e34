package webgpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

type commandEncoder struct {
	encoder *wgpu.CommandEncoder
	device  *device
}

var _ hal.CommandEncoder = &commandEncoder{}

func (e *commandEncoder) InsertDebugMarker(label string) {
	e.encoder.InsertDebugMarker(label)
}

func (e *commandEncoder) BeginRenderPass(descriptor hal.RenderPassDescriptor) (hal.RenderPass, error) {
	attachments := make([]wgpu.RenderPassColorAttachment, len(descriptor.ColorAttachments))
	for i, ca := range descriptor.ColorAttachments {
		v, ok := ca.View.(*textureView)
		if !ok || v.view == nil {
			return nil, errors.New("wgpu: color attachment view is not a live view of this backend")
		}
		attachments[i] = wgpu.RenderPassColorAttachment{
			View:       v.view,
			LoadOp:     ca.LoadOp,
			StoreOp:    ca.StoreOp,
			ClearValue: ca.ClearValue,
		}
	}
	pass := e.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: attachments,
	})
	if pass == nil {
		return nil, errors.New("wgpu: could not begin render pass")
	}
	return &renderPass{pass: pass}, nil
}

func (e *commandEncoder) Finish(label string) (hal.CommandBuffer, error) {
	cb, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &commandBuffer{buffer: cb}, nil
}

func (e *commandEncoder) Release() {
	e.encoder.Release()
}

type renderPass struct {
	pass *wgpu.RenderPassEncoder
}

var _ hal.RenderPass = &renderPass{}

func (p *renderPass) SetPipeline(pipeline hal.RenderPipeline) {
	if rp, ok := pipeline.(*renderPipeline); ok {
		p.pass.SetPipeline(rp.pipeline)
	}
}

func (p *renderPass) SetVertexBuffer(slot uint32, b hal.Buffer, offset, size uint64) {
	if vb, ok := b.(*buffer); ok {
		p.pass.SetVertexBuffer(slot, vb.buffer, offset, size)
	}
}

func (p *renderPass) SetIndexBuffer(b hal.Buffer, format wgpu.IndexFormat, offset, size uint64) {
	if ib, ok := b.(*buffer); ok {
		p.pass.SetIndexBuffer(ib.buffer, format, offset, size)
	}
}

func (p *renderPass) SetBindGroup(group uint32, bg hal.BindGroup) {
	if g, ok := bg.(*bindGroup); ok {
		p.pass.SetBindGroup(group, g.group, nil)
	}
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *renderPass) End() {
	p.pass.End()
}

func (p *renderPass) Release() {
	p.pass.Release()
}
