package emitter

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// MeshData draws a static mesh per particle, instanced when the renderer and every
// section material allow it.
type MeshData struct {
	base
	src      *core.MeshSource
	selected bool

	instanceVF    core.VertexFactory
	instances     *core.InstanceBuffer
	instanceFrame uint64
	instanceCount int

	order []ParticleOrder
}

func NewMesh(src *core.MeshSource) *MeshData {
	d := &MeshData{
		base: newBase(src, core.VFMesh, src.UseLocalSpace),
		src:  src,
	}
	// relevance covers every material a section could end up with
	if lod := src.Mesh.LOD0(); lod != nil {
		for i, sec := range lod.Sections {
			d.relevance = d.relevance.Merge(sec.Material.Relevance())
			if i < len(src.ModuleMaterials) {
				d.relevance = d.relevance.Merge(src.ModuleMaterials[i].Relevance())
			}
		}
	}
	return d
}

func (d *MeshData) UsesDynamicMeshElementData() bool { return false }

func (d *MeshData) Init(rc *core.RenderContext, selected bool) error {
	d.selected = selected
	return d.base.Init(rc, selected)
}

// DrawCount is the number of mesh instances drawn after the MaxDrawCount clamp.
func (d *MeshData) DrawCount() int {
	n := d.activeCount()
	if d.src.MaxDrawCount >= 0 && n > d.src.MaxDrawCount {
		n = d.src.MaxDrawCount
	}
	return n
}

// SectionMaterial resolves a section's material: module override, then component
// override, then the mesh's own, then the engine default. Nil means skip the section.
func (d *MeshData) SectionMaterial(rc *core.RenderContext, prim *core.PrimitiveInfo, section int) *core.MaterialProxy {
	var mat *core.Material
	if section < len(d.src.ModuleMaterials) {
		mat = d.src.ModuleMaterials[section]
	}
	if mat == nil && prim != nil && section < len(prim.ComponentMaterials) {
		mat = prim.ComponentMaterials[section]
	}
	if mat == nil {
		if lod := d.src.Mesh.LOD0(); lod != nil && section < len(lod.Sections) {
			mat = lod.Sections[section].Material
		}
	}
	if mat == nil && rc != nil {
		mat = rc.DefaultMaterial
	}
	return mat.RenderProxy(d.selected)
}

// ParticleTransform is Translation * Rotation * Scale for the particle in active slot,
// in world space.
func (d *MeshData) ParticleTransform(slot int, view *core.SceneView, localToWorld mgl32.Mat4) mgl32.Mat4 {
	rec := d.sb.Record(slot)
	p := core.ReadParticle(rec)
	scale := scaleSize(p.Size, d.sb.Scale)
	rot := d.particleRotation(rec, p, view, localToWorld)

	m := mgl32.Translate3D(p.Location.X(), p.Location.Y(), p.Location.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
	if d.local {
		m = localToWorld.Mul4(m)
	}
	return m
}

func (d *MeshData) particleRotation(rec []byte, p core.Particle, view *core.SceneView, localToWorld mgl32.Mat4) mgl32.Quat {
	if d.src.ScreenAlignment == core.AlignTypeSpecific && view != nil {
		cam := cameraFor(view, d.local, localToWorld)
		return MeshFacing(d.src.Alignment, d.src.LockedAxis, p.Location, cam.pos, cam.up, p.Rotation)
	}
	if d.src.MeshRotation.Valid() {
		return core.EulerDegrees(d.src.MeshRotation.Get(rec).Rotation)
	}
	deg := mgl32.RadToDeg(p.Rotation)
	return core.EulerDegrees(mgl32.Vec3{deg, deg, deg})
}

// MeshFacing builds the camera-facing rotation for a mesh whose local +X is its facing
// axis and +Z its up axis.
//
//	FaceCamera:           X points at the camera.
//	FaceCameraLockedAxis: Z is put on lockedAxis, then the mesh turns about it until X
//	                      faces the camera as closely as the lock allows.
//	FaceCameraSpin:       spin about X by rotation, then point X at the camera.
//	FaceCameraRoll:       point X at the camera, align Z with the camera up, then roll
//	                      about the view direction by rotation.
func MeshFacing(mode core.MeshAlignment, lockedAxis, pos, camPos, camUp mgl32.Vec3, rotation float32) mgl32.Quat {
	dirToCam, ok := core.SafeNormalize(camPos.Sub(pos))
	if !ok {
		return mgl32.QuatIdent()
	}
	switch mode {
	case core.MeshFaceCameraLockedAxis:
		axis, ok := core.SafeNormalize(lockedAxis)
		if !ok {
			axis = core.AxisZ
		}
		pointToUp := core.FindBetween(core.AxisZ, axis)
		facing := pointToUp.Rotate(core.AxisX)
		flat, ok := core.SafeNormalize(dirToCam.Sub(axis.Mul(dirToCam.Dot(axis))))
		if !ok {
			return pointToUp
		}
		return core.RotationAbout(axis, facing, flat).Mul(pointToUp)

	case core.MeshFaceCameraSpin:
		return core.FindBetween(core.AxisX, dirToCam).Mul(core.AxisAngle(core.AxisX, rotation))

	case core.MeshFaceCameraRoll:
		pointToCamera := core.FindBetween(core.AxisX, dirToCam)
		alignUp := mgl32.QuatIdent()
		want, ok := core.SafeNormalize(camUp.Sub(dirToCam.Mul(camUp.Dot(dirToCam))))
		if ok {
			alignUp = core.RotationAbout(dirToCam, pointToCamera.Rotate(core.AxisZ), want)
		}
		return core.AxisAngle(dirToCam, rotation).Mul(alignUp).Mul(pointToCamera)
	}
	return core.FindBetween(core.AxisX, dirToCam)
}

func (d *MeshData) canInstance(rc *core.RenderContext, prim *core.PrimitiveInfo, lod *core.StaticMeshLOD) bool {
	if !rc.Instancing || rc.InstancePool == nil {
		return false
	}
	for i := range lod.Sections {
		mp := d.SectionMaterial(rc, prim, i)
		if mp == nil || !mp.Material.InstancedMeshParticles {
			return false
		}
	}
	return true
}

func (d *MeshData) Render(rc *core.RenderContext, view *core.SceneView, prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer) int {
	if !d.Valid() || pdi == nil || d.DrawCount() == 0 {
		return 0
	}
	log := rc.Logger()
	prim = primOrDefault(prim)
	switch d.src.RenderMode {
	case core.RenderNone:
		return 0
	case core.RenderPoint, core.RenderCross:
		d.drawMarkers(prim, pdi, d.src.RenderMode, d.DrawCount())
		return 0
	}

	lod := d.src.Mesh.LOD0()
	if lod == nil {
		log.Debugf("mesh emitter skipped: no mesh LOD")
		return 0
	}

	var order []ParticleOrder
	if d.proxy != nil && needsSort(d.proxy.Material, d.sb.SortMode, view) {
		d.order = BuildSortOrder(d.order, d.sb, d.sb.SortMode, view, d.worldTransform(prim.LocalToWorld))
		order = d.order
	}

	if rc != nil && d.canInstance(rc, prim, lod) {
		if draws, ok := d.renderInstanced(rc, view, prim, pdi, lod, order); ok {
			return draws
		}
	}

	if err := d.ensureVertexFactory(rc); err != nil {
		log.Errorf("%v", err)
		return 0
	}
	draws := 0
	for i := 0; i < d.DrawCount(); i++ {
		slot := i
		if order != nil {
			slot = order[i].Slot
		}
		xf := d.ParticleTransform(slot, view, prim.LocalToWorld)
		for s, sec := range lod.Sections {
			if sec.NumTriangles == 0 {
				continue
			}
			mp := d.SectionMaterial(rc, prim, s)
			if mp == nil {
				log.Debugf("mesh emitter section %d skipped: no material", s)
				continue
			}
			draws += pdi.DrawMesh(&core.MeshBatch{
				VertexFactory: d.vf,
				Mesh:          d.src.Mesh,
				Section:       s,
				NumPrimitives: sec.NumTriangles,
				Topology:      core.TopologyTriangleList,
				LocalToWorld:  xf,
				Material:      mp,
				DPG:           d.dpg,
				CastShadow:    prim.CastShadow,
			})
		}
	}
	return draws
}

// renderInstanced packs the instance stream once per frame and draws every section with
// all instances. It reports false when no instance buffer could be had, so the caller
// falls back to per-particle draws.
func (d *MeshData) renderInstanced(rc *core.RenderContext, view *core.SceneView, prim *core.PrimitiveInfo, pdi core.PrimitiveDrawer, lod *core.StaticMeshLOD, order []ParticleOrder) (int, bool) {
	log := rc.Logger()
	if d.instanceVF == nil {
		vf, err := rc.Resources.CreateVertexFactory(core.VFMeshInstanced)
		if err != nil {
			log.Errorf("mesh emitter: create instanced vertex factory: %v", err)
			return 0, false
		}
		d.instanceVF = vf
	}

	if d.instances == nil || d.instanceFrame != rc.Frame {
		if d.instances != nil {
			d.retireInstances(rc)
		}
		buf, err := rc.InstancePool.Acquire()
		if err != nil {
			log.Debugf("mesh emitter: %v, drawing without instancing", err)
			return 0, false
		}
		n := d.DrawCount()
		data := buf.Reserve(n * core.MeshInstanceSize)
		for i := 0; i < n; i++ {
			slot := i
			if order != nil {
				slot = order[i].Slot
			}
			m := d.ParticleTransform(slot, view, prim.LocalToWorld)
			inst := core.MeshInstance{
				Location: m.Col(3).Vec3(),
				AxisX:    m.Col(0).Vec3(),
				AxisY:    m.Col(1).Vec3(),
				AxisZ:    m.Col(2).Vec3(),
			}
			inst.Put(data[i*core.MeshInstanceSize:])
		}
		if err := buf.Upload(rc); err != nil {
			log.Errorf("mesh emitter: upload instances: %v", err)
			buf.Release()
			return 0, false
		}
		d.instances = buf
		d.instanceFrame = rc.Frame
		d.instanceCount = n
	}

	draws := 0
	for s, sec := range lod.Sections {
		if sec.NumTriangles == 0 {
			continue
		}
		mp := d.SectionMaterial(rc, prim, s)
		if mp == nil {
			continue
		}
		draws += pdi.DrawMesh(&core.MeshBatch{
			VertexFactory: d.instanceVF,
			Mesh:          d.src.Mesh,
			Section:       s,
			NumPrimitives: sec.NumTriangles,
			Topology:      core.TopologyTriangleList,
			Instances:     d.instances,
			NumInstances:  d.instanceCount,
			LocalToWorld:  mgl32.Ident4(),
			Material:      mp,
			DPG:           d.dpg,
			CastShadow:    prim.CastShadow,
		})
	}
	return draws, true
}

// retireInstances hands the in-flight instance buffer to the release queue, which returns
// it to the pool once the frame that drew it has completed.
func (d *MeshData) retireInstances(rc *core.RenderContext) {
	if d.instances == nil {
		return
	}
	if rc != nil && rc.Garbage != nil {
		rc.Garbage.Defer(d.instances, d.instanceFrame)
	} else {
		d.instances.Release()
	}
	d.instances = nil
	d.instanceCount = 0
}

func (d *MeshData) Release(rc *core.RenderContext) {
	d.retireInstances(rc)
	if d.instanceVF != nil {
		d.instanceVF.Release()
		d.instanceVF = nil
	}
	d.base.Release(rc)
}
